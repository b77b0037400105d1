package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/billing"
	kafkax "github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/kafka"
	"github.com/Farhan41229/DataBrew-Cafe-Management-System/internal/redisx"
)

// Service turns stock.low events into per-ingredient alerts that the staff
// dashboard reads out of redis. Processing is idempotent: replayed events are
// dropped by event id.
type Service struct {
	Log         *slog.Logger
	Redis       *redis.Client
	ServiceName string
}

type Alert struct {
	IngredientID int64   `json:"ingredient_id"`
	Name         string  `json:"name"`
	Remaining    float64 `json:"remaining"`
	Threshold    float64 `json:"threshold"`
	OrderID      int64   `json:"order_id"`
}

// HandleStockLow is the consumer handler for the stock.low topic.
func (s *Service) HandleStockLow(ctx context.Context, m kafkago.Message) error {
	var env billing.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != billing.EventStockLow {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[billing.StockLowPayload](env.Payload)
	if err != nil {
		return err
	}

	for _, ing := range p.Ingredients {
		alert := Alert{
			IngredientID: ing.IngredientID,
			Name:         ing.Name,
			Remaining:    ing.Remaining,
			Threshold:    ing.Threshold,
			OrderID:      p.OrderID,
		}
		key := fmt.Sprintf(redisx.KeyStockAlert, ing.IngredientID)
		_ = s.Redis.Set(ctx, key, kafkax.MustMarshal(alert), redisx.TTLStockAlert).Err()
		s.Log.Warn("ingredient below threshold",
			"ingredient_id", ing.IngredientID,
			"name", ing.Name,
			"remaining", ing.Remaining,
			"threshold", ing.Threshold,
			"order_id", p.OrderID)
	}
	return nil
}
