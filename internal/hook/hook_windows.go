//go:build windows

package hook

import (
	"errors"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	whKeyboardLL  = 13
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmQuit        = 0x0012
	llkhfExtended = 0x01
	pmRemove      = 0x0001
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procPeekMessageW        = user32.NewProc("PeekMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procGetModuleHandleW    = windows.NewLazySystemDLL("kernel32.dll").NewProc("GetModuleHandleW")
)

type kbdllhookstruct struct {
	VKCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// winHook installs a WH_KEYBOARD_LL hook, grounded directly on
// KeyboardHook::Install/Uninstall/RunMessageLoop/LowLevelKeyboardProc.
type winHook struct {
	mu      sync.Mutex
	handle  uintptr
	stopped chan struct{}
}

// New constructs the Windows low-level keyboard hook.
func New() Hook {
	return &winHook{}
}

var currentHandler Handler

// Start installs the hook and runs the message loop on the calling
// goroutine, which is locked to its OS thread for the hook's lifetime
// (SetWindowsHookEx ties the hook to the thread that installed it).
func (h *winHook) Start(handler Handler) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h.mu.Lock()
	currentHandler = handler
	h.stopped = make(chan struct{})
	h.mu.Unlock()

	moduleHandle, _, _ := procGetModuleHandleW.Call(0)
	callback := windows.NewCallback(lowLevelKeyboardProc)
	handle, _, _ := procSetWindowsHookExW.Call(
		uintptr(whKeyboardLL),
		callback,
		moduleHandle,
		0,
	)
	if handle == 0 {
		return errors.New("hook: SetWindowsHookExW failed")
	}

	h.mu.Lock()
	h.handle = handle
	h.mu.Unlock()

	h.runMessageLoop()
	return nil
}

func (h *winHook) runMessageLoop() {
	var m msg
	for {
		select {
		case <-h.stopped:
			return
		default:
		}

		ret, _, _ := procPeekMessageW.Call(
			uintptr(unsafe.Pointer(&m)), 0, 0, 0, uintptr(pmRemove),
		)
		if ret == 0 {
			windows.SleepEx(1, false)
			continue
		}
		if m.Message == wmQuit {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

// Stop uninstalls the hook and releases the message loop.
func (h *winHook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handle != 0 {
		procUnhookWindowsHookEx.Call(h.handle)
		h.handle = 0
	}
	if h.stopped != nil {
		close(h.stopped)
	}
	return nil
}

func lowLevelKeyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 && currentHandler != nil {
		kb := (*kbdllhookstruct)(unsafe.Pointer(lParam))
		ev := Event{
			VKCode:   kb.VKCode,
			ScanCode: uint16(kb.ScanCode),
			Extended: kb.Flags&llkhfExtended != 0,
		}

		switch wParam {
		case wmKeyDown, wmSysKeyDown:
			ev.Pressed = true
			if currentHandler(ev) {
				return 1
			}
		case wmKeyUp, wmSysKeyUp:
			ev.Pressed = false
			if currentHandler(ev) {
				return 1
			}
		}
	}

	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

var available = true
