package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

func main() {
	cfg, seed, emit := parseFlags()
	if err := (&cfg).Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if seed != 0 {
		fleetRng = rand.New(rand.NewSource(seed))
	}
	vehicles := GenerateFleet(cfg)
	if emit {
		writeFleet(os.Stdout, vehicles)
		return
	}
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rep Reporter = LogReporter{}
	if cfg.APIURL != "" {
		rep = NewHTTPReporter(cfg.APIURL)
	}
	runVehicles(ctx, vehicles, cfg, rep)
}

func parseFlags() (Config, int64, bool) {
	var (
		cfg  Config
		seed int64
		emit bool
	)
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.APIURL, "api", "", "engine API base URL used to report mission phases")
	flag.IntVar(&cfg.Count, "count", 5, "number of vehicles")
	flag.Float64Var(&cfg.AmbulancePct, "ambulance-pct", 0.6, "share of ambulances in the fleet")
	flag.Float64Var(&cfg.Center.Lat, "lat", 37.7749, "fleet centre latitude")
	flag.Float64Var(&cfg.Center.Lng, "lng", -122.4194, "fleet centre longitude")
	flag.Float64Var(&cfg.RadiusKm, "radius", 5, "fleet scatter radius in km")
	flag.Float64Var(&cfg.SpeedKmh, "speed", 60, "driving speed in km/h")
	flag.DurationVar(&cfg.Interval, "interval", 2*time.Second, "location publish interval")
	flag.DurationVar(&cfg.Dwell, "dwell", 10*time.Second, "time spent in each on-scene phase")
	flag.Float64Var(&cfg.DisconnectRate, "disconnect-rate", 0, "probability per tick that an idle vehicle toggles duty")
	flag.StringVar(&cfg.TopicPrefix, "topic-prefix", "rescue", "engine MQTT topic prefix")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Int64Var(&seed, "seed", 0, "random seed for a reproducible fleet")
	flag.BoolVar(&emit, "emit-fleet", false, "print the fleet as engine config and exit")
	flag.Parse()
	return cfg, seed, emit
}

// writeFleet prints the fleet section of the engine configuration.
func writeFleet(w io.Writer, vehicles []SimulatedVehicle) {
	fmt.Fprintln(w, "fleet:")
	for _, v := range vehicles {
		fmt.Fprintf(w, "  - {id: %s, kind: %s, driver_id: %s, lat: %.6f, lng: %.6f}\n",
			v.ID, v.Kind, v.DriverID, v.Position.Lat, v.Position.Lng)
	}
}

func runVehicles(ctx context.Context, vehicles []SimulatedVehicle, cfg Config, rep Reporter) {
	var wg sync.WaitGroup
	for i := range vehicles {
		v := &vehicles[i]
		v.Broker = cfg.Broker
		v.TopicPrefix = cfg.TopicPrefix
		v.SpeedKmh = cfg.SpeedKmh
		v.Interval = cfg.Interval
		v.Dwell = cfg.Dwell
		v.Reporter = rep
		wg.Add(1)
		go func(v *SimulatedVehicle) {
			defer wg.Done()
			if err := v.Run(ctx); err != nil {
				log.Printf("%s: %v", v.ID, err)
			}
		}(v)
	}
	wg.Wait()
}
