// Command memomeet runs the meeting summary service and its operator tools.
package main

func main() {
	Execute()
}
