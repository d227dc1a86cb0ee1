package cli

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/finops-adapters/sumo-anycost-go/pkg/version"
)

// displayWelcomeBanner exibe o banner de boas-vindas com informações de versão.
func displayWelcomeBanner(versionStr string) {
	banner := `
	  /$$$$$$                                          /$$$$$$                        /$$$$$$                        /$$
	 /$$__  $$                                        /$$__  $$                      /$$__  $$                      | $$
	| $$  \__/ /$$   /$$ /$$$$$$/$$$$   /$$$$$$      | $$  \ $$ /$$$$$$$  /$$   /$$| $$  \__/  /$$$$$$   /$$$$$$$ /$$$$$$
	|  $$$$$$ | $$  | $$| $$_  $$_  $$ /$$__  $$     | $$$$$$$$| $$__  $$| $$  | $$| $$       /$$__  $$ /$$_____/|_  $$_/
	 \____  $$| $$  | $$| $$ \ $$ \ $$| $$  \ $$     | $$__  $$| $$  \ $$| $$  | $$| $$      | $$  \ $$|  $$$$$$   | $$
	 /$$  \ $$| $$  | $$| $$ | $$ | $$| $$  | $$     | $$  | $$| $$  | $$| $$  | $$| $$    $$| $$  | $$ \____  $$  | $$ /$$
	|  $$$$$$/|  $$$$$$/| $$ | $$ | $$|  $$$$$$/     | $$  | $$| $$  | $$|  $$$$$$$|  $$$$$$/|  $$$$$$/ /$$$$$$$/  |  $$$$/
	 \______/  \______/ |__/ |__/ |__/ \______/      |__/  |__/|__/  |__/ \____  $$ \______/  \______/ |_______/    \___/
	                                                                      /$$  | $$
	                                                                     |  $$$$$$/
	                                                                      \______/
	`
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()

	fmt.Println(cyan(banner))

	formattedVersion := version.FormatVersion()
	fmt.Println(blue(fmt.Sprintf("Sumo Logic AnyCost Adapter (v%s)", formattedVersion)))
}
