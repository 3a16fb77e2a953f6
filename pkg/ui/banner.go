package ui

import (
	"fmt"

	"github.com/pterm/pterm"
)

// ASCII art for the harness logo.
const harnessLogo = `
 _
| |__   __ _ _ __ _ __   ___  ___ ___
| '_ \ / _' | '__| '_ \ / _ \/ __/ __|
| | | | (_| | |  | | | |  __/\__ \__ \
|_| |_|\__,_|_|  |_| |_|\___||___/___/
`

// PrintInitBanner prints the full ASCII banner for init commands.
// This should only be used for major first-run experiences like 'harness init'.
func PrintInitBanner(version string) {
	// Print the ASCII logo in cyan
	fmt.Print(pterm.Cyan(harnessLogo))

	// Print subtitle
	subtitle := fmt.Sprintf(" stack supervisor - %s", version)
	fmt.Println(pterm.NewStyle(pterm.FgWhite, pterm.Bold).Sprint(subtitle))
	fmt.Println()
}

// PrintCompactBanner prints a minimal one-line banner.
// Use this sparingly - most commands should not print any banner.
func PrintCompactBanner(version string) {
	fmt.Printf("%s %s\n",
		pterm.Cyan("harness"),
		pterm.Gray(fmt.Sprintf("v%s", version)),
	)
}
