// Command netdemo runs two netcode endpoints on loopback and exchanges
// reliable, unreliable and fragmented messages between them. It exists to
// eyeball the transport end to end; the real coverage lives in the tests.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"github.com/meridian-games/netcode"
	"github.com/meridian-games/netcode/limits"
)

func main() {
	logrus.SetLevel(logrus.WarnLevel)

	pterm.DefaultHeader.Println("netcode loopback demo")

	server, err := netcode.Listen("127.0.0.1:0", netcode.DefaultConfig())
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	defer server.Close()

	client, err := netcode.Listen("127.0.0.1:0", netcode.DefaultConfig())
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	defer client.Close()

	pterm.Info.Println("server listening on", server.LocalAddr())
	pterm.Info.Println("client listening on", client.LocalAddr())

	go func() {
		for msg := range server.Receive() {
			preview := msg.Payload
			if len(preview) > 32 {
				preview = preview[:32]
			}
			pterm.Success.Println(fmt.Sprintf("server got %d bytes from %s: %q...",
				len(msg.Payload), msg.From, preview))
		}
	}()
	go func() {
		for f := range server.Failures() {
			pterm.Warning.Println("server delivery failure:", f.Addr, f.ID)
		}
	}()

	send := func(payload []byte, r netcode.Reliability, label string) {
		if err := client.Send(server.LocalAddr(), payload, r); err != nil {
			pterm.Error.Println(label, "send failed:", err)
			return
		}
		pterm.Info.Println("client sent", label, fmt.Sprintf("(%d bytes)", len(payload)))
	}

	send([]byte("player joined"), netcode.Reliable, "reliable greeting")
	send([]byte("pos=12,7 vel=0,1"), netcode.Unreliable, "unreliable state update")

	blob := make([]byte, 3*limits.FragmentPayloadSize+123)
	rand.New(rand.NewSource(time.Now().UnixNano())).Read(blob)
	send(blob, netcode.Reliable, "fragmented blob")

	time.Sleep(time.Second)
	pterm.Info.Println("done")
}
