package detector

import (
	"fmt"
	"log"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// The ONNX runtime environment is process-wide. It comes up once, on the
// first model load, and goes down at most once at shutdown.
var ortEnv struct {
	mu          sync.Mutex
	initialized bool
}

// defaultLibraryPaths are tried in order when ONNXRUNTIME_LIB is unset.
var defaultLibraryPaths = []string{
	"/usr/lib/libonnxruntime.so",
	"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	"/usr/local/lib/libonnxruntime.so",
}

// initRuntime brings the shared environment up if it is not already.
func initRuntime() error {
	ortEnv.mu.Lock()
	defer ortEnv.mu.Unlock()

	if ortEnv.initialized {
		return nil
	}

	if path := os.Getenv("ONNXRUNTIME_LIB"); path != "" {
		ort.SetSharedLibraryPath(path)
	} else {
		for _, path := range defaultLibraryPaths {
			if _, err := os.Stat(path); err == nil {
				ort.SetSharedLibraryPath(path)
				break
			}
		}
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime: %w", err)
	}
	ortEnv.initialized = true
	return nil
}

// ShutdownRuntime destroys the shared environment. It is safe to call
// multiple times and before any model was ever loaded.
func ShutdownRuntime() {
	ortEnv.mu.Lock()
	defer ortEnv.mu.Unlock()

	if !ortEnv.initialized {
		return
	}
	ortEnv.initialized = false
	if err := ort.DestroyEnvironment(); err != nil {
		log.Printf("Destroying onnx runtime: %v", err)
	}
}
