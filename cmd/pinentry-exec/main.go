// pinentry-exec - an Assuan pinentry that delegates the dialog to an
// external command.
//
// gpg-agent (or any Assuan agent) spawns this process with the protocol
// on stdin/stdout. The human-facing prompt is rendered by whatever
// command is configured; its stdout becomes the passphrase, its exit
// status the confirmation. Without a configured command, a built-in
// terminal prompt is used.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
