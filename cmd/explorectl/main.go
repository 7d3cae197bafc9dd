// explorectl is the operator CLI for the exploration engine.
package main

func main() {
	Execute()
}
