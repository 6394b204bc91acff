//go:build darwin

package permissions

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AVFoundation -framework CoreGraphics
#import <AVFoundation/AVFoundation.h>
#import <CoreGraphics/CoreGraphics.h>

int checkMediaPermission(int video) {
    AVMediaType mediaType = video ? AVMediaTypeVideo : AVMediaTypeAudio;
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:mediaType];
    return (int)status;
}

void requestMediaPermission(int video) {
    AVMediaType mediaType = video ? AVMediaTypeVideo : AVMediaTypeAudio;
    [AVCaptureDevice requestAccessForMediaType:mediaType completionHandler:^(BOOL granted) {}];
}

int checkScreenPermission() {
    if (@available(macOS 10.15, *)) {
        return CGPreflightScreenCaptureAccess() ? 3 : 0;
    }
    return 3;
}

void requestScreenPermission() {
    if (@available(macOS 10.15, *)) {
        CGRequestScreenCaptureAccess();
    }
}
*/
import "C"

// Check returns the current authorization status for src.
func Check(src Source) Status {
	switch src {
	case Microphone:
		return Status(C.checkMediaPermission(0))
	case Camera:
		return Status(C.checkMediaPermission(1))
	case Screen:
		return Status(C.checkScreenPermission())
	default:
		return Denied
	}
}

// Request triggers the system permission dialog for src.
func Request(src Source) {
	switch src {
	case Microphone:
		C.requestMediaPermission(0)
	case Camera:
		C.requestMediaPermission(1)
	case Screen:
		C.requestScreenPermission()
	}
}
