//go:build tools

package credseal

// Pins the OSS-Fuzz native fuzzing shim so compile_native_go_fuzzer can build FuzzXxx targets.
import _ "github.com/AdamKorcz/go-118-fuzz-build/testing"
