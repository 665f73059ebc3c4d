package dispatch_test

import (
	"strings"
	"testing"

	"casescribe/internal/domain/dispatch"
)

func TestParseObjectKey(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		expected  dispatch.WorkItem
		expectErr bool
	}{
		{
			name: "standard three segment key",
			raw:  "case-42/aud_01H/recording.mp3",
			expected: dispatch.WorkItem{
				ObjectKey: "case-42/aud_01H/recording.mp3",
				Filename:  "recording.mp3",
				Extension: "mp3",
				SessionID: "case-42",
			},
		},
		{
			name: "url encoded key with plus as space",
			raw:  "case-42/aud_01H/witness+statement%202.wav",
			expected: dispatch.WorkItem{
				ObjectKey: "case-42/aud_01H/witness statement 2.wav",
				Filename:  "witness statement 2.wav",
				Extension: "wav",
				SessionID: "case-42",
			},
		},
		{
			name: "key without directory falls back to unknown session",
			raw:  "loose-recording.flac",
			expected: dispatch.WorkItem{
				ObjectKey: "loose-recording.flac",
				Filename:  "loose-recording.flac",
				Extension: "flac",
				SessionID: "unknown",
			},
		},
		{
			name: "leading slash falls back to unknown session",
			raw:  "/recording.mp3",
			expected: dispatch.WorkItem{
				ObjectKey: "/recording.mp3",
				Filename:  "recording.mp3",
				Extension: "mp3",
				SessionID: "unknown",
			},
		},
		{
			name: "filename without extension",
			raw:  "case-7/aud_02X/recording",
			expected: dispatch.WorkItem{
				ObjectKey: "case-7/aud_02X/recording",
				Filename:  "recording",
				Extension: "",
				SessionID: "case-7",
			},
		},
		{
			name:      "empty key is rejected",
			raw:       "",
			expectErr: true,
		},
		{
			name:      "invalid url encoding is rejected",
			raw:       "case-1/aud_03Y/bad%zzname.mp3",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dispatch.ParseObjectKey(tt.raw)
			if tt.expectErr {
				if err == nil {
					t.Errorf("ParseObjectKey(%q) expected error, got %+v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseObjectKey(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.expected {
				t.Errorf("ParseObjectKey(%q) = %+v, want %+v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestWorkItem_PartitionKey(t *testing.T) {
	item := dispatch.WorkItem{SessionID: "case-42"}
	if got := item.PartitionKey(); got != "case-42" {
		t.Errorf("WorkItem.PartitionKey() = %q, want %q", got, "case-42")
	}
}

func TestWorkItem_NewDedupKey(t *testing.T) {
	item := dispatch.WorkItem{ObjectKey: "case-42/aud_01H/recording.mp3"}

	first := item.NewDedupKey()
	second := item.NewDedupKey()

	if !strings.HasPrefix(first, item.ObjectKey+"-") {
		t.Errorf("NewDedupKey() = %q, want prefix %q", first, item.ObjectKey+"-")
	}
	// The random suffix makes every key unique even within one millisecond.
	if first == second {
		t.Errorf("NewDedupKey() produced identical keys %q", first)
	}
}
