// Package voice manages the catalog of synthesis voices and the persisted
// assignment of voices to agent identities.
package voice

import "strings"

// Voice pairs a synthesis voice ID with a short human description.
type Voice struct {
	ID          string
	Description string
}

// ModelVoice pins a model-name prefix to a fixed voice. The table is ordered;
// the first matching entry wins.
type ModelVoice struct {
	Prefix  string
	VoiceID string
}

// Pool is the set of English neural voices eligible for random assignment.
var Pool = []Voice{
	{"en-US-AriaNeural", "Female, US, conversational"},
	{"en-US-GuyNeural", "Male, US, friendly"},
	{"en-US-JennyNeural", "Female, US, warm"},
	{"en-US-ChristopherNeural", "Male, US, professional"},
	{"en-US-EricNeural", "Male, US, casual"},
	{"en-US-MichelleNeural", "Female, US, cheerful"},
	{"en-GB-SoniaNeural", "Female, British, sophisticated"},
	{"en-GB-RyanNeural", "Male, British, friendly"},
	{"en-AU-NatashaNeural", "Female, Australian"},
	{"en-AU-WilliamNeural", "Male, Australian"},
	{"en-IE-EmilyNeural", "Female, Irish"},
	{"en-IE-ConnorNeural", "Male, Irish"},
	{"en-IN-NeerjaNeural", "Female, Indian"},
	{"en-CA-ClaraNeural", "Female, Canadian"},
}

// ModelVoices maps well-known model-name prefixes to fixed voices, so that
// agents named after a model always speak with the same voice.
var ModelVoices = []ModelVoice{
	{"opus", "en-GB-RyanNeural"},
	{"sonnet", "en-US-AriaNeural"},
	{"haiku", "en-US-JennyNeural"},
}

// DefaultVoice is used when no agent or explicit voice is given.
const DefaultVoice = "en-US-AriaNeural"

// Describe returns the pool description for a voice ID, or "" if the voice
// is not in the pool.
func Describe(voiceID string) string {
	for _, v := range Pool {
		if v.ID == voiceID {
			return v.Description
		}
	}
	return ""
}

// MatchModelVoice resolves an agent ID against the fixed model-voice table.
// The agent ID matches an entry when, lowercased, it equals the prefix or
// starts with prefix+"-". Returns DefaultVoice when nothing matches.
func MatchModelVoice(agentID string) string {
	id := strings.ToLower(agentID)
	for _, mv := range ModelVoices {
		if id == mv.Prefix || strings.HasPrefix(id, mv.Prefix+"-") {
			return mv.VoiceID
		}
	}
	return DefaultVoice
}
