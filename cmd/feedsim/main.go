// feedsim publishes a synthetic routing event feed for lab and load
// testing. It binds a PUB socket, announces a generated topology, then
// streams route churn, peer flaps and link stats at a configurable rate.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/routelab/rcp/pkg/feed"
	"github.com/routelab/rcp/pkg/logging"
)

func main() {
	bind := flag.String("bind", "tcp://127.0.0.1:5556", "PUB socket bind address")
	routers := flag.Int("routers", 4, "Number of border routers")
	peersPer := flag.Int("peers", 2, "Peers per router")
	prefixes := flag.Int("prefixes", 100, "Number of destination prefixes")
	rate := flag.Int("rate", 50, "Events per second")
	flapEvery := flag.Duration("flap", 30*time.Second, "Mean time between peer flaps (0 disables)")
	compress := flag.Bool("compress", false, "Snappy-compress published frames")
	seed := flag.Int64("seed", 0, "Random seed (0 uses current time)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("RCP Feed Simulator\n")
	fmt.Printf("==================\n\n")
	fmt.Printf("Bind:     %s\n", *bind)
	fmt.Printf("Topology: %d routers x %d peers, %d prefixes\n", *routers, *peersPer, *prefixes)
	fmt.Printf("Rate:     %d events/s (seed %d)\n\n", *rate, *seed)

	logger := logging.NewDefaultLogger()
	publisher, err := feed.NewPublisher(feed.NewSocketFactory(), feed.PublisherConfig{
		Address:  *bind,
		Compress: *compress,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	if err := publisher.Start(); err != nil {
		log.Fatalf("Failed to start publisher: %v", err)
	}
	defer func() {
		if err := publisher.Stop(); err != nil {
			log.Printf("Publisher stop failed: %v", err)
		}
	}()

	sim := newSimulator(rng, *routers, *peersPer, *prefixes)

	// Let late subscribers connect before the initial announcements
	time.Sleep(500 * time.Millisecond)
	for _, ev := range sim.bootstrap() {
		if err := publisher.Publish(ev); err != nil {
			log.Fatalf("Failed to publish bootstrap event: %v", err)
		}
	}
	fmt.Printf("Announced %d routers and %d initial routes\n",
		*routers, *routers * *peersPer * *prefixes)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	eventTicker := time.NewTicker(time.Second / time.Duration(max(1, *rate)))
	defer eventTicker.Stop()

	var flapCh <-chan time.Time
	if *flapEvery > 0 {
		flapTicker := time.NewTicker(*flapEvery)
		defer flapTicker.Stop()
		flapCh = flapTicker.C
	}

	published := 0
	for {
		select {
		case <-eventTicker.C:
			if err := publisher.Publish(sim.churn()); err != nil {
				log.Printf("Publish failed: %v", err)
			}
			published++
		case <-flapCh:
			for _, ev := range sim.flapPeer() {
				if err := publisher.Publish(ev); err != nil {
					log.Printf("Publish failed: %v", err)
				}
			}
		case sig := <-sigCh:
			fmt.Printf("\nReceived %v, published %d events, shutting down\n", sig, published)
			return
		}
	}
}
