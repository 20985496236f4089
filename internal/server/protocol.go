package server

// Interface names and versions of the globals.
const (
	ifaceDisplay         = "wl_display"
	ifaceRegistry        = "wl_registry"
	ifaceCallback        = "wl_callback"
	ifaceCompositor      = "wl_compositor"
	ifaceRegion          = "wl_region"
	ifaceSurface         = "wl_surface"
	ifaceShm             = "wl_shm"
	ifaceShmPool         = "wl_shm_pool"
	ifaceBuffer          = "wl_buffer"
	ifaceSeat            = "wl_seat"
	ifacePointer         = "wl_pointer"
	ifaceKeyboard        = "wl_keyboard"
	ifaceSubcompositor   = "wl_subcompositor"
	ifaceSubsurface      = "wl_subsurface"
	ifaceShell           = "wl_shell"
	ifaceShellSurface    = "wl_shell_surface"
	versionCompositor    = 4
	versionShm           = 1
	versionSeat          = 5
	versionSubcompositor = 1
	versionShell         = 1
)

var requestNames = map[string][]string{
	ifaceDisplay:       {"sync", "get_registry"},
	ifaceRegistry:      {"bind"},
	ifaceCompositor:    {"create_surface", "create_region"},
	ifaceRegion:        {"destroy", "add", "subtract"},
	ifaceSurface:       {"destroy", "attach", "damage", "frame", "set_opaque_region", "set_input_region", "commit", "set_buffer_transform", "set_buffer_scale", "damage_buffer"},
	ifaceShm:           {"create_pool"},
	ifaceShmPool:       {"create_buffer", "destroy", "resize"},
	ifaceBuffer:        {"destroy"},
	ifaceSeat:          {"get_pointer", "get_keyboard", "get_touch", "release"},
	ifacePointer:       {"set_cursor", "release"},
	ifaceKeyboard:      {"release"},
	ifaceSubcompositor: {"destroy", "get_subsurface"},
	ifaceSubsurface:    {"destroy", "set_position", "place_above", "place_below", "set_sync", "set_desync"},
	ifaceShell:         {"get_shell_surface"},
	ifaceShellSurface:  {"pong", "move", "resize", "set_toplevel", "set_transient", "set_fullscreen", "set_popup", "set_maximized", "set_title", "set_class"},
}

func requestName(iface string, op uint16) string {
	names := requestNames[iface]
	if int(op) < len(names) {
		return names[op]
	}
	return "unknown"
}
