package main

import (
	"os"
	"os/exec"

	"github.com/goyek/goyek/v2"
)

func gocmd(a *goyek.A, args ...string) {
	cmd := exec.CommandContext(a.Context(), "go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		a.Error(err)
	}
}

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "Run go vet on all packages",
	Action: func(a *goyek.A) {
		gocmd(a, "vet", "./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "Run the tests (set SHORT=1 to skip tests that spawn processes)",
	Action: func(a *goyek.A) {
		args := []string{"test", "-race", "./..."}
		if os.Getenv("SHORT") != "" {
			args = append(args, "-short")
		}
		gocmd(a, args...)
	},
})

var _ = goyek.Define(goyek.Task{
	Name:  "all",
	Usage: "Run vet and test",
	Deps:  goyek.Deps{vet, test},
})

func main() {
	goyek.Main(os.Args[1:])
}
