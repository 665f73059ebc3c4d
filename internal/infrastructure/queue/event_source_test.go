package queue_test

import (
	"testing"

	"casescribe/internal/infrastructure/queue"
)

func TestDecodeObjectKeys(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		expected  []string
		expectErr bool
	}{
		{
			name: "single record",
			body: `{"Records":[{"s3":{"object":{"key":"case-1/aud_01/recording.mp3"}}}]}`,
			expected: []string{
				"case-1/aud_01/recording.mp3",
			},
		},
		{
			name: "multiple records",
			body: `{"Records":[
				{"s3":{"object":{"key":"case-1/aud_01/a.mp3"}}},
				{"s3":{"object":{"key":"case-2/aud_02/b.wav"}}}
			]}`,
			expected: []string{
				"case-1/aud_01/a.mp3",
				"case-2/aud_02/b.wav",
			},
		},
		{
			name:     "records without keys are skipped",
			body:     `{"Records":[{"s3":{"object":{}}},{"s3":{"object":{"key":"case-1/aud_01/a.mp3"}}}]}`,
			expected: []string{"case-1/aud_01/a.mp3"},
		},
		{
			name:      "no records",
			body:      `{"Records":[]}`,
			expectErr: true,
		},
		{
			name:      "not json",
			body:      `s3 test event`,
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := queue.DecodeObjectKeys([]byte(tt.body))
			if tt.expectErr {
				if err == nil {
					t.Errorf("DecodeObjectKeys() expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeObjectKeys() unexpected error: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("DecodeObjectKeys() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("DecodeObjectKeys()[%d] = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}
