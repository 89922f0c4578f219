// ABOUTME: Interactive prompts for the login and signup commands
// ABOUTME: Uses huh fields on a terminal; tests substitute a scripted prompter

package cmd

import (
	"github.com/charmbracelet/huh"
)

// prompter asks the user for one value at a time
type prompter interface {
	Input(title, placeholder string, value *string) error
	Secret(title string, value *string) error
}

type huhPrompter struct{}

func (huhPrompter) Input(title, placeholder string, value *string) error {
	return huh.NewInput().
		Title(title).
		Placeholder(placeholder).
		Value(value).
		Run()
}

func (huhPrompter) Secret(title string, value *string) error {
	return huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(value).
		Run()
}
