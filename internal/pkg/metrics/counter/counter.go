package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hookbayhq/hookbay/internal/pkg/cache"
	"github.com/hookbayhq/hookbay/internal/pkg/database"
)

const settlementEventsKey = "settlement:counters:events"

// Counter fields drained into the settlement_stats columns of the same name.
const (
	fieldProcessed  = "processed"
	fieldDuplicates = "duplicates"
	fieldIgnored    = "ignored"
	fieldFailed     = "failed"
)

// AddProcessed increments the pending processed-event counter in Redis
func AddProcessed() error {
	return incr(fieldProcessed)
}

// AddDuplicate increments the pending duplicate-delivery counter in Redis
func AddDuplicate() error {
	return incr(fieldDuplicates)
}

// AddIgnored increments the pending ignored-event counter in Redis
func AddIgnored() error {
	return incr(fieldIgnored)
}

// AddFailed increments the pending failed-event counter in Redis
func AddFailed() error {
	return incr(fieldFailed)
}

func incr(field string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, settlementEventsKey, field, 1).Err()
}

// FlushAll drains the pending counters into today's settlement_stats row.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func FlushAll() error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", settlementEventsKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", settlementEventsKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	counts := map[string]int64{}
	for field, v := range data {
		inc, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil || inc == 0 {
			continue
		}
		switch field {
		case fieldProcessed, fieldDuplicates, fieldIgnored, fieldFailed:
			counts[field] = inc
		}
	}
	if len(counts) == 0 {
		return nil
	}

	sql := "INSERT INTO settlement_stats (stat_date, processed, duplicates, ignored, failed, created_at, updated_at) " +
		"VALUES (CURDATE(), ?, ?, ?, ?, NOW(), NOW()) " +
		"ON DUPLICATE KEY UPDATE " +
		"processed = processed + VALUES(processed), " +
		"duplicates = duplicates + VALUES(duplicates), " +
		"ignored = ignored + VALUES(ignored), " +
		"failed = failed + VALUES(failed), " +
		"updated_at = NOW()"

	db := database.GetDB()
	if err := db.Exec(sql,
		counts[fieldProcessed],
		counts[fieldDuplicates],
		counts[fieldIgnored],
		counts[fieldFailed],
	).Error; err != nil {
		return err
	}
	return nil
}
