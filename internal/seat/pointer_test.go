package seat

import (
	"image"
	"testing"

	"github.com/bnema/waycore/internal/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFocusFollowsCurrent(t *testing.T) {
	f := newFixture()
	a := f.surface(1, 10, image.Rect(0, 0, 100, 100))
	b := f.surface(2, 20, image.Rect(100, 0, 200, 100))
	f.bindPointer(1)
	f.bindPointer(2)

	f.motion(1, 10, 20)
	f.motion(2, 150, 50)

	assert.Equal(t, []string{
		"c1 enter 1 wl_surface@10/1 10,20",
		"c1 motion 1 10,20",
		"c1 leave 2 wl_surface@10/1",
		"c2 enter 3 wl_surface@20/2 50,50",
		"c2 motion 2 50,50",
	}, f.log.lines)

	p := f.seat.Pointer()
	assert.Same(t, b, p.Focus())
	assert.Same(t, b, p.Current())
	assert.Equal(t, uint32(3), p.FocusSerial())
	assert.NotSame(t, a, p.Focus())
}

func TestFocusFrozenWhileButtonHeld(t *testing.T) {
	f := newFixture()
	a := f.surface(1, 10, image.Rect(0, 0, 100, 100))
	b := f.surface(2, 20, image.Rect(100, 0, 200, 100))
	f.bindPointer(1)
	f.bindPointer(2)
	f.motion(1, 10, 10)
	f.log.reset()

	f.button(2, input.ButtonPrimary, true)
	f.motion(3, 150, 10)
	p := f.seat.Pointer()
	assert.Same(t, a, p.Focus(), "focus stays on the pressed surface")
	assert.Same(t, b, p.Current())

	f.button(4, input.ButtonPrimary, false)

	assert.Equal(t, []string{
		"c1 button 2 2 0x110 true",
		"c1 motion 3 150,10",
		"c1 button 3 4 0x110 false",
		"c1 leave 4 wl_surface@10/1",
		"c2 enter 5 wl_surface@20/2 50,10",
	}, f.log.lines)
	assert.Same(t, b, p.Focus())
	assert.Zero(t, p.ButtonCount())
}

func TestButtonCodesOnTheWire(t *testing.T) {
	f := newFixture()
	f.surface(1, 10, image.Rect(0, 0, 100, 100))
	f.bindPointer(1)
	f.motion(1, 1, 1)
	f.log.reset()

	for _, b := range []uint32{input.ButtonMiddle, input.ButtonSecondary, 8} {
		f.button(2, b, true)
		f.button(3, b, false)
	}
	assert.Equal(t, []string{
		"c1 button 2 2 0x112 true",
		"c1 button 3 3 0x112 false",
		"c1 button 4 2 0x111 true",
		"c1 button 5 3 0x111 false",
		"c1 button 6 2 0x113 true",
		"c1 button 7 3 0x113 false",
	}, f.log.lines)
}

func TestEnterForwardsKeyboardModifiers(t *testing.T) {
	f := newFixture()
	f.surface(1, 10, image.Rect(0, 0, 100, 100))
	f.bindPointer(1)
	f.bindKeyboard(1)
	f.seat.Keyboard().mods = input.KeyboardModifiers{Depressed: 4, Locked: 2}

	f.motion(1, 5, 5)

	assert.Equal(t, []string{
		"c1 mods 1 4/0/2/0",
		"c1 enter 1 wl_surface@10/1 5,5",
		"c1 motion 1 5,5",
	}, f.log.lines)
}

func TestFocusWithoutPointerResource(t *testing.T) {
	f := newFixture()
	s := f.surface(3, 30, image.Rect(0, 0, 100, 100))

	f.motion(1, 5, 5)
	p := f.seat.Pointer()
	assert.Same(t, s, p.Focus())
	assert.Nil(t, p.FocusResource())
	assert.Empty(t, f.log.lines)

	f.bindPointer(3)
	assert.Equal(t, []string{"c3 enter 1 wl_surface@30/3 5,5"}, f.log.lines)
	assert.NotNil(t, p.FocusResource())
}

func TestFocusedSurfaceDestroyed(t *testing.T) {
	f := newFixture()
	s := f.surface(1, 10, image.Rect(0, 0, 100, 100))
	f.bindPointer(1)
	f.motion(1, 5, 5)
	f.log.reset()

	s.Destroy()
	p := f.seat.Pointer()
	assert.Nil(t, p.Focus())
	assert.Nil(t, p.FocusResource())
	assert.Nil(t, p.Current())

	f.motion(2, 6, 6)
	assert.Empty(t, f.log.lines, "no leave is sent for a destroyed surface")
}

func TestPointerResourceReleased(t *testing.T) {
	f := newFixture()
	f.surface(1, 10, image.Rect(0, 0, 100, 100))
	r := f.bindPointer(1)
	f.motion(1, 5, 5)

	f.seat.RemovePointerResource(r)
	p := f.seat.Pointer()
	assert.Nil(t, p.FocusResource())
	assert.Nil(t, p.Focus())
}

func TestRemoveClient(t *testing.T) {
	f := newFixture()
	f.surface(1, 10, image.Rect(0, 0, 100, 100))
	f.bindPointer(1)
	f.bindPointer(1)
	f.bindKeyboard(1)
	other := f.bindPointer(2)
	f.motion(1, 5, 5)

	f.seat.RemoveClient(1)
	assert.Equal(t, []PointerResource{other}, f.seat.pointerResources)
	assert.Empty(t, f.seat.keyboardResources)
	assert.Nil(t, f.seat.Pointer().FocusResource())
}

// Focus resource is only ever set for a focused surface of the same client.
func TestFocusResourceMatchesClient(t *testing.T) {
	f := newFixture()
	f.surface(1, 10, image.Rect(0, 0, 100, 100))
	f.surface(2, 20, image.Rect(100, 0, 200, 100))
	f.surface(3, 30, image.Rect(0, 100, 200, 200))
	f.bindPointer(1)
	f.bindPointer(2)

	path := [][2]float64{{5, 5}, {150, 5}, {5, 150}, {250, 250}, {99, 99}, {100, 99}}
	for i, pt := range path {
		f.motion(uint32(i), pt[0], pt[1])
		if i%2 == 0 {
			f.button(uint32(i), input.ButtonPrimary, true)
		} else {
			f.button(uint32(i), input.ButtonPrimary, false)
		}
		p := f.seat.Pointer()
		if r := p.FocusResource(); r != nil {
			require.NotNil(t, p.Focus())
			assert.Equal(t, p.Focus().Client(), r.Client())
		}
	}
}

func TestScrollAxis(t *testing.T) {
	f := newFixture()
	f.surface(1, 10, image.Rect(0, 0, 100, 100))
	f.bindPointer(1)
	f.motion(1, 5, 5)
	f.log.reset()

	scroll := func(ev input.Event) {
		ev.Type = input.Scroll
		ev.X, ev.Y = 5, 5
		f.seat.HandleEvent(&ev)
	}
	scroll(input.Event{Time: 2, Direction: input.ScrollSmooth, DY: 1.5})
	scroll(input.Event{Time: 3, Direction: input.ScrollDown, Flags: input.FlagEmulated})
	scroll(input.Event{Time: 4, Direction: input.ScrollUp})
	scroll(input.Event{Time: 5, Direction: input.ScrollSmooth, DX: -1, Flags: input.FlagEmulated})
	scroll(input.Event{Time: 6, Direction: input.ScrollRight})

	assert.Equal(t, []string{
		"c1 axis 2 vertical 15",
		"c1 axis 4 vertical -10",
		"c1 axis 6 horizontal 10",
	}, f.log.lines)
}

func TestCanStartInteractive(t *testing.T) {
	f := newFixture()
	a := f.surface(1, 10, image.Rect(0, 0, 100, 100))
	b := f.surface(1, 11, image.Rect(100, 0, 200, 100))
	f.bindPointer(1)
	f.motion(1, 5, 5)
	p := f.seat.Pointer()

	assert.False(t, p.CanStartInteractive(a, p.GrabSerial()), "no button held")

	f.button(2, input.ButtonPrimary, true)
	serial := p.GrabSerial()
	assert.True(t, p.CanStartInteractive(a, serial))
	assert.False(t, p.CanStartInteractive(a, serial+1))
	assert.False(t, p.CanStartInteractive(b, serial))
	assert.False(t, p.CanStartInteractive(nil, serial))

	x, y := p.GrabPosition()
	assert.Equal(t, 5.0, x)
	assert.Equal(t, 5.0, y)

	f.button(3, input.ButtonPrimary, false)
	assert.False(t, p.CanStartInteractive(a, serial))
}

func TestNonPointerEventsIgnored(t *testing.T) {
	f := newFixture()
	assert.False(t, f.seat.HandleEvent(&input.Event{Type: input.TouchBegin}))
	assert.False(t, f.seat.Pointer().HandleEvent(&input.Event{Type: input.KeyPress}))
}
