// cardchat is a terminal chat client that shows selected agent replies as
// draggable cards.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
