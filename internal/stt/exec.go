package stt

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"
)

// ExecEngine runs a local transcription command once per request. The command
// receives the audio path and parameters as flags and prints its result on
// stdout, either as JSON ({"text": ..., "segments": [...]}, a JSON string) or
// as plain text.
type ExecEngine struct {
	cmd []string
}

func NewExecEngine(command string) (*ExecEngine, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = true
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse engine command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("engine command is empty")
	}
	return &ExecEngine{cmd: args}, nil
}

func (e *ExecEngine) Name() string { return "exec:" + e.cmd[0] }

func (e *ExecEngine) Transcribe(ctx context.Context, path string, p Params) (Result, error) {
	args := append([]string{}, e.cmd[1:]...)
	args = append(args, buildArgs(path, p)...)

	command := exec.CommandContext(ctx, e.cmd[0], args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("engine command failed: %w", err)
		}
		return nil, fmt.Errorf("engine command failed: %w: %s", err, msg)
	}

	return DecodeResult(stdout.Bytes()), nil
}

func buildArgs(path string, p Params) []string {
	mode := p.Mode
	if mode == "" {
		mode = ModeTranscribe
	}
	args := []string{
		"--audio", path,
		"--model", p.Model,
		"--task", string(mode),
		"--temperature", strconv.FormatFloat(p.Temperature, 'f', -1, 64),
	}
	if p.Language != LanguageAuto {
		args = append(args, "--language", p.Language)
	}
	if p.Prompt != PromptNone {
		args = append(args, "--initial-prompt", p.Prompt)
	}
	return args
}
