package mqtt

import (
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/evdash/core/sim"
	"github.com/kilianp07/evdash/infra/logger"
)

// Executor runs a command against the simulation.
type Executor interface {
	Execute(c sim.Command) error
}

// CommandResult acknowledges one remote command.
type CommandResult struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// CommandListener executes commands received on the command topic and
// answers on the command result topic.
type CommandListener struct {
	client *Client
	exec   Executor
	log    logger.Logger
}

func NewCommandListener(c *Client, exec Executor) *CommandListener {
	return &CommandListener{client: c, exec: exec, log: logger.New("mqtt_commands")}
}

// Start subscribes to the command topic.
func (l *CommandListener) Start() error {
	return l.client.Subscribe(TopicCommand, l.onMessage)
}

func (l *CommandListener) onMessage(_ paho.Client, msg paho.Message) {
	var cmd sim.Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		l.log.Errorf("failed to decode command: %v", err)
		l.reply(CommandResult{Error: "malformed command: " + err.Error()})
		return
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	res := CommandResult{ID: cmd.ID, Command: cmd.Name, OK: true}
	if err := l.exec.Execute(cmd); err != nil {
		res.OK = false
		res.Error = err.Error()
	} else {
		l.log.Infof("executed remote command %s (%s)", cmd.Name, cmd.ID)
	}
	l.reply(res)
}

func (l *CommandListener) reply(res CommandResult) {
	payload, err := json.Marshal(res)
	if err != nil {
		l.log.Errorf("encode command result: %v", err)
		return
	}
	if err := l.client.Publish(TopicCommandResult, false, payload); err != nil {
		l.log.Warnf("command result publish failed: %v", err)
	}
}
