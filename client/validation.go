package client

import (
	"fmt"
	"github.com/ingluisfelipemunoz/turnqueue/custom_errors"
	"github.com/ingluisfelipemunoz/turnqueue/internal/constants"
	"strings"
	"unicode/utf8"
)

func validatePlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	errs := &custom_errors.ValidationError{}
	if name == "" {
		errs.Add(fmt.Errorf("player name is required"))
	} else if utf8.RuneCountInString(name) > constants.MaxPlayerNameLength {
		errs.Add(fmt.Errorf("player name must be at most %d characters", constants.MaxPlayerNameLength))
	}
	if errs.HasError() {
		return "", errs
	}
	return name, nil
}

func validateAction(playerName, action string) (string, string, error) {
	errs := &custom_errors.ValidationError{}

	name, err := validatePlayerName(playerName)
	if err != nil {
		errs.Add(fmt.Errorf("playerName: %w", err))
	}

	action = strings.TrimSpace(action)
	if action == "" {
		errs.Add(fmt.Errorf("action is required"))
	} else if utf8.RuneCountInString(action) > constants.MaxActionLength {
		errs.Add(fmt.Errorf("action must be at most %d characters", constants.MaxActionLength))
	}

	if errs.HasError() {
		return "", "", errs
	}
	return name, action, nil
}
