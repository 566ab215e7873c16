package common

// Virtual key codes used by the viewer bindings.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyC     = 67  // C key (ASCII), re-center the model
	KeyG     = 71  // G key (ASCII), toggle the ground grid
	KeyM     = 77  // M key (ASCII), print the current display metadata
	KeyP     = 80  // P key (ASCII), pause or resume the render loop
	KeyR     = 82  // R key (ASCII), replay the fly-in animation
	KeySpace = 32  // Spacebar (ASCII), switch to idle pointer-follow
	KeyEsc   = 256 // Escape key (GLFW), close the dialog
)
