package surface

// Role is the behavioural category a surface is given by a shell or the
// seat. A surface keeps its role for life; the protocol object that
// granted it may be destroyed and recreated, but only for the same role.
type Role int

const (
	RoleNone Role = iota
	RoleToplevel
	RolePopup
	RoleSubsurface
	RoleCursor
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleToplevel:
		return "toplevel"
	case RolePopup:
		return "popup"
	case RoleSubsurface:
		return "subsurface"
	case RoleCursor:
		return "cursor"
	default:
		return "unknown"
	}
}

// Role returns the surface's role.
func (s *Surface) Role() Role { return s.role }

// Window returns the managed window of a toplevel or popup.
func (s *Surface) Window() Window { return s.window }

// Shell returns the shell object of a toplevel or popup.
func (s *Surface) Shell() ShellSurface { return s.shell }

// assignRole gives the surface role r. live reports whether the object
// that holds role r for this surface still exists.
func (s *Surface) assignRole(r Role, live bool) error {
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	if s.role == RoleNone || (s.role == r && !live) {
		s.role = r
		return nil
	}
	if s.role == r {
		return protocolErrorf(CodeRole, "%v already has an active %v role object", s, r)
	}
	return protocolErrorf(CodeRole, "%v has role %v, cannot become %v", s, s.role, r)
}

// MakeToplevel gives the surface the toplevel role and a managed window.
// Calling it again through the shell object that already holds the role
// is a state change (toplevel, transient, maximized, fullscreen) and keeps
// the window.
func (s *Surface) MakeToplevel(shell ShellSurface) error {
	if s.role == RoleToplevel && s.window != nil && s.shell == shell && !s.destroyed {
		return nil
	}
	if err := s.assignRole(RoleToplevel, s.window != nil); err != nil {
		return err
	}
	s.shell = shell
	s.window = s.comp.wm.Manage(s, RoleToplevel, nil, 0, 0)
	return nil
}

// MakePopup gives the surface the popup role, placed at x, y relative to
// parent.
func (s *Surface) MakePopup(shell ShellSurface, parent *Surface, x, y int) error {
	if parent == nil || parent.destroyed {
		return protocolErrorf(CodeInvalidObject, "popup %v needs a live parent", s)
	}
	if err := s.assignRole(RolePopup, s.window != nil); err != nil {
		return err
	}
	s.shell = shell
	s.window = s.comp.wm.Manage(s, RolePopup, parent, x, y)
	return nil
}

// MakeCursor gives the surface the cursor role. Setting the same surface
// as cursor again is allowed.
func (s *Surface) MakeCursor() error {
	return s.assignRole(RoleCursor, false)
}

// ReleaseShell unmanages the window after its shell object is destroyed.
// The surface keeps its role.
func (s *Surface) ReleaseShell() {
	if s.window != nil {
		s.window.Unmanage()
		s.window = nil
	}
	s.shell = nil
}

// Configure forwards a size suggestion to the shell object.
func (s *Surface) Configure(edges uint32, width, height int32) {
	if s.shell != nil {
		s.shell.Configure(edges, width, height)
	}
}
