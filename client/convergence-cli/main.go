package main

import "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/client/convergence-cli/cmd"

func main() {
	cmd.Execute()
}
