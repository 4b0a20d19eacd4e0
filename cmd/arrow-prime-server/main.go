package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/datapythonista/arrow-prime/api"
	"github.com/datapythonista/arrow-prime/engine"
	"github.com/datapythonista/arrow-prime/network"
)

func main() {
	var (
		tcpAddr     = flag.String("addr", ":8815", "TCP address for Arrow IPC requests")
		zmqAddr     = flag.String("zmq", "", "ZeroMQ address (e.g. tcp://0.0.0.0:5555); empty disables")
		metricsAddr = flag.String("metrics", ":2112", "HTTP address for /metrics; empty disables")
		workers     = flag.Int("workers", 0, "kernel workers; 0 uses all CPUs")
	)
	flag.Parse()

	pool := engine.NewPool("kernel", *workers)
	defer pool.Shutdown()

	handler := api.NewArrowHandler().WithPool(pool)

	var metricsServer *api.MetricsServer
	if *metricsAddr != "" {
		handler.WithMetrics(api.NewMetrics("arrowprime"))
		metricsServer = api.NewMetricsServer(*metricsAddr)
		metricsServer.StartAsync()
		log.Printf("Metrics on http://%s/metrics", *metricsAddr)
	}

	server := api.NewArrowServer(handler)
	log.Printf("Starting Arrow server on %s...", *tcpAddr)
	if err := server.StartAsync(*tcpAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	var endpoint *network.Endpoint
	if *zmqAddr != "" {
		endpoint = network.NewEndpoint(*zmqAddr, handler)
		log.Printf("Starting zmq endpoint on %s...", *zmqAddr)
		if err := endpoint.Start(); err != nil {
			log.Fatalf("Failed to start zmq endpoint: %v", err)
		}
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	if endpoint != nil {
		endpoint.Stop()
	}
	server.Stop()
	if metricsServer != nil {
		_ = metricsServer.Stop()
	}
	log.Println("Server stopped.")
}
