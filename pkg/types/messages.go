package types

// Client -> Server
//
// Action (topic/actions):
//   agent_id: string
//   action:   string  // "move up" | "up" | "turn left" | "attack" | "start" | "msg-strategy-collective" ...
//
// Audio (topic/audio), sent when the microphone auto-mutes:
//   audio:        base64 WAV, mono, 16-bit, 44100 Hz
//   agent_id:     string
//   message_kind: string  // communication tag without the "msg-" prefix

type ActionMessage struct {
	AgentID string `json:"agent_id"`
	Action  string `json:"action"`
}

type AudioMessage struct {
	Audio       string `json:"audio"`
	AgentID     string `json:"agent_id"`
	MessageKind string `json:"message_kind"`
}
