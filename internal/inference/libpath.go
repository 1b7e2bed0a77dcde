package inference

import (
	"errors"
	"os"
	"runtime"

	onnxrt "github.com/yalue/onnxruntime_go"
)

// setONNXLibraryPath points onnxruntime_go at the shared library. An explicit
// environment override wins; otherwise common install locations are probed.
func setONNXLibraryPath() error {
	if path := os.Getenv("TESTFLOW_ONNX_LIB"); path != "" {
		onnxrt.SetSharedLibraryPath(path)
		return nil
	}
	if path := findSystemLibraryPath(); path != "" {
		onnxrt.SetSharedLibraryPath(path)
		return nil
	}
	return errors.New("onnxruntime shared library not found; set TESTFLOW_ONNX_LIB")
}

func findSystemLibraryPath() string {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/usr/local/lib/libonnxruntime.dylib",
			"/opt/homebrew/lib/libonnxruntime.dylib",
		}
	case "windows":
		candidates = []string{
			`C:\Program Files\onnxruntime\lib\onnxruntime.dll`,
		}
	default:
		candidates = []string{
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
			"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
			"/opt/onnxruntime/lib/libonnxruntime.so",
		}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
