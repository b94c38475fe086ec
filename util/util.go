// Package util provides small interactive-CLI helpers shared across
// portforge's maintenance directives.
package util

import (
	"fmt"
	"strings"
)

// AskYN prompts the user for yes/no confirmation on stdin/stdout.
func AskYN(prompt string, defaultYes bool) bool {
	if defaultYes {
		fmt.Printf("%s [Y/n]: ", prompt)
	} else {
		fmt.Printf("%s [y/N]: ", prompt)
	}

	var response string
	fmt.Scanln(&response)
	response = strings.ToLower(strings.TrimSpace(response))

	if response == "" {
		return defaultYes
	}

	return response == "y" || response == "yes"
}
