// Command kds is a terminal kitchen display: it polls the station RPC for
// the kitchen queue and logs every order that appears, moves or leaves.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/resto-orders/internal/adapter/handler"
	"github.com/rl1809/resto-orders/internal/config"
	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/poll"
)

var kitchenStatuses = []string{
	string(domain.OrderStatusConfirmed),
	string(domain.OrderStatusMaking),
	string(domain.OrderStatusReady),
}

func main() {
	_ = godotenv.Load()
	cfg := config.Get()

	var (
		addr     = flag.String("addr", "localhost"+cfg.Server.GRPCAddr, "station RPC address")
		interval = flag.Duration("interval", poll.DefaultInterval(poll.ActorKitchen), "poll interval")
		once     = flag.Bool("once", false, "poll a single time and exit")
	)
	flag.Parse()

	logger := config.NewLogger(cfg, false)

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.Fatal("Failed to create station client", gecho.Field("error", err))
	}
	defer conn.Close()
	client := handler.NewOrderStationClient(conn)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := poll.NewTracker()
	pollOnce := func() {
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		reply, err := client.ListOrders(callCtx, &handler.ListOrdersRequest{
			Statuses: kitchenStatuses,
			Sort:     string(domain.SortOldestFirst),
		})
		if err != nil {
			logger.Warn("Poll failed", gecho.Field("error", err))
			return
		}
		report(logger, tracker, reply.Orders)
	}

	pollOnce()
	if *once {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Kitchen display stopped")
			return
		case <-ticker.C:
			pollOnce()
		}
	}
}

func report(logger *gecho.Logger, tracker *poll.Tracker, replies []handler.OrderReply) {
	orders := make([]domain.Order, len(replies))
	urgency := make(map[string]poll.Urgency, len(replies))
	for i, r := range replies {
		orders[i] = r.Order
		urgency[r.Order.Code] = r.Urgency
	}

	for _, c := range tracker.Observe(orders) {
		if c.First {
			logger.Info("New in queue",
				gecho.Field("code", c.Code),
				gecho.Field("status", c.Status),
				gecho.Field("urgency", urgency[c.Code]),
			)
			continue
		}
		logger.Info("Order moved",
			gecho.Field("code", c.Code),
			gecho.Field("from", c.FromStatus),
			gecho.Field("to", c.Status),
		)
	}
	for _, code := range tracker.Retain(orders) {
		logger.Info("Left queue", gecho.Field("code", code))
	}

	for _, o := range orders {
		if u := urgency[o.Code]; u == poll.UrgencyVeryUrgent {
			logger.Warn("Order waiting too long", gecho.Field("code", o.Code), gecho.Field("status", o.Status))
		}
	}
}
