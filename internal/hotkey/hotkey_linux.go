//go:build linux

package hotkey

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/keysym.h>
#include <stdlib.h>

Display* displayPtr = NULL;
static int threadsReady = 0;
static int grabError = 0;

// Xlib's default handler exits the process. A conflicting grab from
// another client must only fail the registration.
static int onXError(Display* d, XErrorEvent* e) {
    grabError = e->error_code;
    return 0;
}

// Register, Unregister and the event loop run on different goroutines,
// so Xlib has to be put in thread-safe mode before the first connection.
static int openDisplay() {
    if (!threadsReady) {
        if (!XInitThreads()) return 0;
        XSetErrorHandler(onXError);
        threadsReady = 1;
    }
    if (displayPtr == NULL) {
        displayPtr = XOpenDisplay(NULL);
    }
    return displayPtr != NULL;
}

static int keycodeFor(const char* name) {
    if (!openDisplay()) return 0;
    KeySym sym = XStringToKeysym(name);
    if (sym == NoSymbol) return 0;
    return XKeysymToKeycode(displayPtr, sym);
}

static void ungrabLocked(int keycode, unsigned int modifiers) {
    Window root = DefaultRootWindow(displayPtr);
    unsigned int extra[4] = {0, LockMask, Mod2Mask, LockMask | Mod2Mask};
    for (int i = 0; i < 4; i++) {
        XUngrabKey(displayPtr, keycode, modifiers | extra[i], root);
    }
    XSync(displayPtr, False);
}

// Grab with and without NumLock and CapsLock so the hotkey keeps working
// when either is on. Returns 0 when another client owns the combination.
static int grabKey(int keycode, unsigned int modifiers) {
    if (!openDisplay()) return 0;

    XLockDisplay(displayPtr);
    grabError = 0;
    Window root = DefaultRootWindow(displayPtr);
    unsigned int extra[4] = {0, LockMask, Mod2Mask, LockMask | Mod2Mask};
    for (int i = 0; i < 4; i++) {
        XGrabKey(displayPtr, keycode, modifiers | extra[i], root, False, GrabModeAsync, GrabModeAsync);
    }
    XSelectInput(displayPtr, root, KeyPressMask | KeyReleaseMask);
    XSync(displayPtr, False);

    int ok = grabError == 0;
    if (!ok) {
        ungrabLocked(keycode, modifiers);
    }
    XUnlockDisplay(displayPtr);
    return ok;
}

static void ungrabKey(int keycode, unsigned int modifiers) {
    if (displayPtr == NULL) return;

    XLockDisplay(displayPtr);
    ungrabLocked(keycode, modifiers);
    XUnlockDisplay(displayPtr);
}

static int checkEvent(int* keycode, int* pressed) {
    if (displayPtr == NULL) return 0;

    XEvent event;
    if (XPending(displayPtr) > 0) {
        XNextEvent(displayPtr, &event);
        if (event.type == KeyPress || event.type == KeyRelease) {
            *keycode = event.xkey.keycode;
            *pressed = (event.type == KeyPress) ? 1 : 0;
            return 1;
        }
    }
    return 0;
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unsafe"
)

type grab struct {
	keycode   int
	modifiers uint
	callback  func(bool)
}

type linuxManager struct {
	mu    sync.Mutex
	grabs map[string]grab // canonical accelerator -> grab
	stop  chan struct{}
	once  sync.Once
}

// New creates a new Linux hotkey manager using X11
func New() (Manager, error) {
	if C.openDisplay() == 0 {
		return nil, fmt.Errorf("failed to open X display")
	}

	mgr := &linuxManager{
		grabs: make(map[string]grab),
		stop:  make(chan struct{}),
	}

	go mgr.eventLoop()

	return mgr, nil
}

func (m *linuxManager) Register(accel string, callback func(pressed bool)) error {
	a, err := ParseAccelerator(accel)
	if err != nil {
		return err
	}

	name := C.CString(keysymName(a.Key))
	defer C.free(unsafe.Pointer(name))

	keycode := int(C.keycodeFor(name))
	if keycode == 0 {
		return fmt.Errorf("unknown key %q", a.Key)
	}
	modifiers := x11Modifiers(a.Modifiers)

	if C.grabKey(C.int(keycode), C.uint(modifiers)) == 0 {
		return fmt.Errorf("failed to grab key %s, it may be taken by another application", a)
	}

	m.mu.Lock()
	m.grabs[a.String()] = grab{keycode: keycode, modifiers: modifiers, callback: callback}
	m.mu.Unlock()
	return nil
}

func (m *linuxManager) eventLoop() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			var keycode, pressed C.int
			for C.checkEvent(&keycode, &pressed) != 0 {
				m.dispatch(int(keycode), pressed == 1)
			}
		}
	}
}

func (m *linuxManager) dispatch(keycode int, pressed bool) {
	m.mu.Lock()
	var callbacks []func(bool)
	for _, g := range m.grabs {
		if g.keycode == keycode {
			callbacks = append(callbacks, g.callback)
		}
	}
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(pressed)
	}
}

func (m *linuxManager) Unregister(accel string) error {
	a, err := ParseAccelerator(accel)
	if err != nil {
		return err
	}

	m.mu.Lock()
	g, ok := m.grabs[a.String()]
	delete(m.grabs, a.String())
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("hotkey %s is not registered", a)
	}
	C.ungrabKey(C.int(g.keycode), C.uint(g.modifiers))
	return nil
}

func (m *linuxManager) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func x11Modifiers(mod Modifier) uint {
	var mask uint
	if mod&ModShift != 0 {
		mask |= 1 // ShiftMask
	}
	if mod&ModCtrl != 0 {
		mask |= 4 // ControlMask
	}
	if mod&ModAlt != 0 {
		mask |= 8 // Mod1Mask
	}
	if mod&ModSuper != 0 {
		mask |= 64 // Mod4Mask
	}
	return mask
}

// keysymName maps accelerator key names onto X keysym names.
func keysymName(key string) string {
	switch key {
	case "enter", "return":
		return "Return"
	case "esc", "escape":
		return "Escape"
	case "tab":
		return "Tab"
	case "backspace":
		return "BackSpace"
	case "pause":
		return "Pause"
	}
	if len(key) > 1 && key[0] == 'f' && strings.Trim(key[1:], "0123456789") == "" {
		return "F" + key[1:]
	}
	return key
}
