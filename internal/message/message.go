package message

import (
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/aripalo/go-delightful"
	"github.com/enescakir/emoji"
)

var message = delightful.New("aci-deploy")

func SetSilentMode(flag bool) {
	message.SetSilentMode(flag)
}

func SetVerboseMode(flag bool) {
	message.SetVerboseMode(flag)
}

func SetEmojiMode(flag bool) {
	message.SetEmojiMode(flag)
}

func SetColorMode(flag bool) {
	message.SetColorMode(flag)
}

// SetTarget redirects every message to w instead of the terminal.
func SetTarget(w io.Writer) {
	message.SetMessageTarget(w)
}

func Select(message string, options []string, defaultValue string) (string, error) {
	var answer string
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultValue,
	}

	err := survey.AskOne(prompt, &answer)
	if err != nil {
		return "", fmt.Errorf("failed to ask question: %w", err)
	}

	return answer, nil
}

func BoolSelect(message string) (bool, error) {
	var answer bool
	prompt := &survey.Confirm{
		Message: message,
	}

	err := survey.AskOne(prompt, &answer)
	if err != nil {
		return false, fmt.Errorf("failed to ask question: %w", err)
	}

	return answer, nil
}

// Prompt asks for a free text value. When required is set an empty answer is rejected by the prompt itself.
func Prompt(message string, defaultValue string, required bool) (string, error) {
	var answer string
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}

	var opts []survey.AskOpt
	if required {
		opts = append(opts, survey.WithValidator(survey.Required))
	}

	err := survey.AskOne(prompt, &answer, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to ask question: %w", err)
	}

	return strings.TrimSpace(answer), nil
}

func Debug(format string, args ...any) {
	message.Debugln(emoji.HammerAndWrench, fmt.Sprintf(format, args...))
}

func Warning(format string, args ...any) {
	message.Warningln(emoji.Warning, fmt.Sprintf(format, args...))
}

func Info(format string, args ...any) {
	message.Infoln(emoji.Information, fmt.Sprintf(format, args...))
}

// Step announces the start of a pipeline stage.
func Step(index, total int, name string) {
	message.HorizontalRuler()
	message.Titleln(emoji.Gear, fmt.Sprintf("[%d/%d] %s", index, total, name))
}

// Raw prints external command output as-is, indented under the current step.
func Raw(output string) {
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return
	}
	for _, line := range strings.Split(output, "\n") {
		message.Infoln(emoji.Emoji(""), "  "+line)
	}
}

func Success(format string, args ...any) {
	message.Infoln(emoji.CheckMarkButton, fmt.Sprintf(format, args...))
}

func Error(format string, args ...any) {
	message.Failureln(emoji.CrossMark, fmt.Sprintf(format, args...))
}
