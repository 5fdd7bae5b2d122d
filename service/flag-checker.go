package service

import (
	"errors"
	"fmt"
	"regexp"

	"ctfhost/content"
)

// ErrCheckerNotImplemented is returned for program-type checkers. It is
// deliberately distinct from "wrong flag" so operators are not misled into
// thinking the flag was evaluated.
var ErrCheckerNotImplemented = errors.New("program flag checkers are not implemented")

// CheckFlag evaluates the task's checkers in declaration order and
// short-circuits on the first match. The task should be the generated
// instance, so instance-specific flags are honored.
func CheckFlag(task *content.Task, flagText string) (bool, error) {
	for _, checker := range task.Flags {
		switch checker.Type {
		case content.CheckerString:
			if checker.Data == flagText {
				return true, nil
			}
		case content.CheckerRegex:
			re, err := regexp.Compile(`\A(?:` + checker.Data + `)\z`)
			if err != nil {
				return false, fmt.Errorf("task %d: invalid flag pattern: %w", task.Id, err)
			}
			if re.MatchString(flagText) {
				return true, nil
			}
		case content.CheckerProgram:
			return false, ErrCheckerNotImplemented
		default:
			return false, fmt.Errorf("task %d: unknown checker type %q", task.Id, checker.Type)
		}
	}
	return false, nil
}
