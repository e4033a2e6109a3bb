package ipc

// Control commands accepted over the daemon socket.
const (
	CommandStatus  = "status"
	CommandStart   = "start"
	CommandStop    = "stop"
	CommandCancel  = "cancel"
	CommandToggle  = "toggle"
	CommandCorrect = "correct"
	CommandReload  = "reload"
)

var knownCommands = map[string]bool{
	CommandStatus:  true,
	CommandStart:   true,
	CommandStop:    true,
	CommandCancel:  true,
	CommandToggle:  true,
	CommandCorrect: true,
	CommandReload:  true,
}

// KnownCommand reports whether command is part of the control protocol.
func KnownCommand(command string) bool {
	return knownCommands[command]
}

// Request is one newline-delimited JSON command sent to the daemon.
type Request struct {
	Command string `json:"command"`
}

// Response is the daemon's single JSON reply.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
