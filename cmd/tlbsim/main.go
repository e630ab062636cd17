// Command tlbsim runs a TLB hierarchy with random translation traffic.
package main

import "github.com/sarchlab/tlbsim/cmd/tlbsim/cmd"

func main() {
	cmd.Execute()
}
