package speech

import (
	"encoding/binary"
	"strings"
	"testing"
)

func TestEscapeXML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "build finished", "build finished"},
		{"ampersand", "fish & chips", "fish &amp; chips"},
		{"angle brackets", "a <b> c", "a &lt;b&gt; c"},
		{"quotes", `it's "done"`, "it&apos;s &quot;done&quot;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeXML(tt.in); got != tt.want {
				t.Errorf("escapeXML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSSMLCarriesVoiceAndText(t *testing.T) {
	got := ssml("tests <passed>", "en-GB-SoniaNeural")

	if !strings.Contains(got, "name='en-GB-SoniaNeural'") {
		t.Errorf("ssml missing voice name: %s", got)
	}
	if !strings.Contains(got, "tests &lt;passed&gt;") {
		t.Errorf("ssml text not escaped: %s", got)
	}
}

func TestMessagePath(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "turn end frame",
			data: "X-RequestId:abc\r\nPath:turn.end\r\n\r\n{}",
			want: "turn.end",
		},
		{
			name: "response frame",
			data: "Path:response\r\nContent-Type:application/json\r\n\r\n{}",
			want: "response",
		},
		{
			name: "no path header",
			data: "Content-Type:application/json\r\n\r\n{}",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := messagePath([]byte(tt.data)); got != tt.want {
				t.Errorf("messagePath = %q, want %q", got, tt.want)
			}
		})
	}
}

func binaryFrame(header string, payload []byte) []byte {
	frame := make([]byte, 2, 2+len(header)+len(payload))
	binary.BigEndian.PutUint16(frame, uint16(len(header)))
	frame = append(frame, header...)
	return append(frame, payload...)
}

func TestAudioChunk(t *testing.T) {
	payload := []byte{0xff, 0xfb, 0x90, 0x00}

	t.Run("audio frame yields payload", func(t *testing.T) {
		frame := binaryFrame("X-RequestId:abc\r\nContent-Type:audio/mpeg\r\nPath:audio\r\n", payload)
		got, err := audioChunk(frame)
		if err != nil {
			t.Fatalf("audioChunk failed: %v", err)
		}
		if string(got) != string(payload) {
			t.Errorf("audioChunk = %v, want %v", got, payload)
		}
	})

	t.Run("non-audio frame yields nothing", func(t *testing.T) {
		frame := binaryFrame("Path:telemetry\r\n", payload)
		got, err := audioChunk(frame)
		if err != nil {
			t.Fatalf("audioChunk failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("audioChunk on non-audio frame = %v, want empty", got)
		}
	})

	t.Run("short frame is an error", func(t *testing.T) {
		if _, err := audioChunk([]byte{0x01}); err == nil {
			t.Error("expected error for one-byte frame")
		}
	})

	t.Run("truncated header is an error", func(t *testing.T) {
		frame := []byte{0x00, 0xff, 'P'}
		if _, err := audioChunk(frame); err == nil {
			t.Error("expected error for truncated header")
		}
	})
}

func TestFilterVoices(t *testing.T) {
	voices := []VoiceInfo{
		{ShortName: "en-US-GuyNeural", Locale: "en-US"},
		{ShortName: "fr-FR-DeniseNeural", Locale: "fr-FR"},
		{ShortName: "en-GB-SoniaNeural", Locale: "en-GB"},
		{ShortName: "en-US-AriaNeural", Locale: "en-US"},
	}

	t.Run("no filter sorts by locale then name", func(t *testing.T) {
		got := FilterVoices(voices, "")
		want := []string{"en-GB-SoniaNeural", "en-US-AriaNeural", "en-US-GuyNeural", "fr-FR-DeniseNeural"}
		if len(got) != len(want) {
			t.Fatalf("got %d voices, want %d", len(got), len(want))
		}
		for i, name := range want {
			if got[i].ShortName != name {
				t.Errorf("voices[%d] = %s, want %s", i, got[i].ShortName, name)
			}
		}
	})

	t.Run("locale filter is case-insensitive", func(t *testing.T) {
		got := FilterVoices(voices, "EN")
		if len(got) != 3 {
			t.Fatalf("got %d voices, want 3", len(got))
		}
		for _, v := range got {
			if !strings.HasPrefix(v.Locale, "en") {
				t.Errorf("unexpected locale %s", v.Locale)
			}
		}
	})
}
