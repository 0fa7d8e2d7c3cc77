package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "classify":
		err = runClassify(rest, stdout, stderr)
	case "compare":
		err = runCompare(rest, stdout, stderr)
	case "token":
		err = runToken(rest, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `gazeclass - eye-movement event classification

Usage: gazeclass <command> [options] <file>...

Commands:
  classify   Label a recording and print one row per sample (or per event with -events)
  compare    Compare a detector with the rater labels of labelled recordings
  token      Issue an admin API token
  help       Show this help message

Examples:
  gazeclass classify -algorithm idt UH21_img_Rome_labelled_RA.txt
  gazeclass classify -format tobii -res 1920x1080 -events subject01.txt
  gazeclass compare -algorithm ivt -params '{"velocity_threshold": 1}' data/*.txt
  gazeclass token -subject alice -ttl 2h`)
}
