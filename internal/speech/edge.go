package speech

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Microsoft Edge read-aloud endpoints. The trusted client token is the
// fixed token the Edge browser itself presents.
const (
	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	synthesizeURL      = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	voiceListURL       = "https://speech.platform.bing.com/consumer/speech/synthesize/readaloud/voices/list"

	// DefaultOutputFormat is the audio container requested from the
	// service; ffplay handles it directly.
	DefaultOutputFormat = "audio-24khz-48kbitrate-mono-mp3"
)

const edgeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"

// EdgeEngine synthesizes speech through the Edge neural TTS service.
type EdgeEngine struct {
	outputFormat string
	dialer       *websocket.Dialer
	httpClient   *http.Client

	// Request pacing, to stay friendly with an unauthenticated endpoint.
	limiter *rate.Limiter
}

// EdgeConfig holds configuration for the Edge engine.
type EdgeConfig struct {
	// OutputFormat defaults to DefaultOutputFormat.
	OutputFormat string

	// RequestsPerMinute paces synthesis and voice-list requests
	// (defaults to 30).
	RequestsPerMinute int
}

// NewEdgeEngine creates an Edge TTS engine.
func NewEdgeEngine(config EdgeConfig) *EdgeEngine {
	if config.OutputFormat == "" {
		config.OutputFormat = DefaultOutputFormat
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 30
	}
	return &EdgeEngine{
		outputFormat: config.OutputFormat,
		dialer:       websocket.DefaultDialer,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
	}
}

// Synthesize streams audio for the text from the read-aloud websocket.
// There is no retry: any failure is surfaced to the caller as fatal.
func (e *EdgeEngine) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	connID := strings.ReplaceAll(uuid.NewString(), "-", "")
	u := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", synthesizeURL, trustedClientToken, connID)

	header := http.Header{}
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")
	header.Set("Origin", "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold")
	header.Set("User-Agent", edgeUserAgent)

	conn, resp, err := e.dialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("unable to connect to synthesis service (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("unable to connect to synthesis service: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	timestamp := time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")

	speechConfig := fmt.Sprintf(
		"X-Timestamp:%s\r\nContent-Type:application/json; charset=utf-8\r\nPath:speech.config\r\n\r\n"+
			`{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"%s"}}}}`,
		timestamp, e.outputFormat)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(speechConfig)); err != nil {
		return nil, fmt.Errorf("unable to send speech config: %w", err)
	}

	ssmlMsg := fmt.Sprintf(
		"X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nX-Timestamp:%s\r\nPath:ssml\r\n\r\n%s",
		connID, timestamp, ssml(text, voice))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMsg)); err != nil {
		return nil, fmt.Errorf("unable to send synthesis request: %w", err)
	}

	var audio []byte
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("synthesis stream failed: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			if messagePath(data) == "turn.end" {
				if len(audio) == 0 {
					return nil, ErrNoAudio
				}
				log.Debug("Synthesis complete", "voice", voice, "bytes", len(audio))
				return audio, nil
			}
		case websocket.BinaryMessage:
			chunk, err := audioChunk(data)
			if err != nil {
				return nil, err
			}
			audio = append(audio, chunk...)
		}
	}
}

// ssml wraps text in the minimal SSML envelope the service expects.
func ssml(text, voice string) string {
	return fmt.Sprintf(
		`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'><voice name='%s'>%s</voice></speak>`,
		voice, escapeXML(text))
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// messagePath extracts the Path header from a text frame. Frames carry
// CRLF-separated headers, then a blank line, then the body.
func messagePath(data []byte) string {
	headers, _, _ := strings.Cut(string(data), "\r\n\r\n")
	for _, line := range strings.Split(headers, "\r\n") {
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "Path") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// audioChunk extracts the audio payload from a binary frame. The first two
// bytes are the big-endian length of a textual header block; only frames
// whose header path is "audio" carry payload.
func audioChunk(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("binary frame too short (%d bytes)", len(data))
	}
	headerLen := int(binary.BigEndian.Uint16(data[:2]))
	if len(data) < 2+headerLen {
		return nil, fmt.Errorf("binary frame header truncated (%d of %d bytes)", len(data)-2, headerLen)
	}
	if messagePath(data[2:2+headerLen]) != "audio" {
		return nil, nil
	}
	return data[2+headerLen:], nil
}

// VoiceInfo describes one voice from the remote catalog.
type VoiceInfo struct {
	Name      string `json:"Name"`
	ShortName string `json:"ShortName"`
	Gender    string `json:"Gender"`
	Locale    string `json:"Locale"`
}

// ListVoices fetches the remote voice catalog, optionally filtered to
// locales starting with localePrefix, sorted by locale then name.
func (e *EdgeEngine) ListVoices(ctx context.Context, localePrefix string) ([]VoiceInfo, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := fmt.Sprintf("%s?trustedclienttoken=%s", voiceListURL, url.QueryEscape(trustedClientToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create voice list request: %w", err)
	}
	req.Header.Set("User-Agent", edgeUserAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch voice list: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("voice list HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var voices []VoiceInfo
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("unable to decode voice list: %w", err)
	}

	return FilterVoices(voices, localePrefix), nil
}

// FilterVoices filters by locale prefix (case-insensitive) and sorts by
// locale then short name.
func FilterVoices(voices []VoiceInfo, localePrefix string) []VoiceInfo {
	filtered := voices
	if localePrefix != "" {
		prefix := strings.ToLower(localePrefix)
		filtered = make([]VoiceInfo, 0, len(voices))
		for _, v := range voices {
			if strings.HasPrefix(strings.ToLower(v.Locale), prefix) {
				filtered = append(filtered, v)
			}
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Locale != filtered[j].Locale {
			return filtered[i].Locale < filtered[j].Locale
		}
		return filtered[i].ShortName < filtered[j].ShortName
	})
	return filtered
}
