// Package wire implements the Wayland wire format: 32-bit words in host
// byte order, an 8-byte header per message, 24.8 fixed-point numbers and
// file descriptors passed as SCM_RIGHTS ancillary data.
package wire

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// byteOrder is the host byte order.
var byteOrder = binary.NativeEndian

const (
	// HeaderSize is the sender id word plus the size/opcode word.
	HeaderSize = 8

	// MaxMessageSize matches libwayland's limit.
	MaxMessageSize = 4096

	// MaxFDs is the most descriptors accepted with a single read.
	MaxFDs = 28
)

func padding(n uint32) uint32 {
	return (4 - n%4) % 4
}

// RuntimeDir returns $XDG_RUNTIME_DIR with the same fallback clients use.
func RuntimeDir() string {
	if dir, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok {
		return dir
	}
	return fmt.Sprintf("/run/user/%v", os.Getuid())
}

// DisplayName returns $WAYLAND_DISPLAY, or wayland-0 when it is unset.
func DisplayName() string {
	if name := os.Getenv("WAYLAND_DISPLAY"); name != "" {
		return name
	}
	return "wayland-0"
}

// SocketPath resolves a display name to a socket path. Absolute names are
// returned unchanged.
func SocketPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(RuntimeDir(), name)
}

// FreeSocketName returns the lowest wayland-N name that has no socket in
// the runtime directory.
func FreeSocketName() (string, error) {
	entries, err := os.ReadDir(RuntimeDir())
	if err != nil {
		return "", fmt.Errorf("read runtime dir: %w", err)
	}

	used := make(map[int]struct{}, len(entries))
	for _, ent := range entries {
		after, ok := strings.CutPrefix(ent.Name(), "wayland-")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(after)
		if err != nil {
			continue
		}
		used[n] = struct{}{}
	}

	num := 0
	for {
		if _, ok := used[num]; !ok {
			break
		}
		num++
	}
	return fmt.Sprintf("wayland-%d", num), nil
}
