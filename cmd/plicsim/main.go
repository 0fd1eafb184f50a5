// Command plicsim runs PLIC driver instances against simulated controllers.
package main

func main() {
	execute()
}
