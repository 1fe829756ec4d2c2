package device

import "testing"

func TestDetectDialect(t *testing.T) {
	tests := []struct {
		software string
		platform string
		want     Dialect
	}{
		{"IOS XR 7.3.2", "", DialectIOSXR},
		{"", "ASR9001", DialectIOSXR},
		{"NX-OS 9.3", "", DialectNXOS},
		{"", "Nexus 9300", DialectNXOS},
		{"IOS-XE 17.6", "", DialectIOS},
		{"IOS 15.2", "C3725", DialectIOS},
		{"", "", DialectIOS},
		// XR software and an ASR9 platform together still select IOS-XR
		{"IOS XR", "ASR9010", DialectIOSXR},
	}

	for _, tt := range tests {
		if got := DetectDialect(tt.software, tt.platform); got != tt.want {
			t.Errorf("DetectDialect(%q, %q) = %q, want %q", tt.software, tt.platform, got, tt.want)
		}
	}
}
