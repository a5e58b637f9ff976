// Command gateway-mesh runs the LoRa gateway-mesh relay: a Relay Gateway
// extends LoRaWAN coverage over a dedicated mesh radio, and the one Border
// Gateway in a mesh bridges it back to a network server.
package main

import (
	"os"

	"github.com/agsys/gateway-mesh/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
