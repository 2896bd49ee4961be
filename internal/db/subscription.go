package db

import (
	"context"
	"fmt"
)

// Subscriptions change only as a side effect of adding, modifying and
// bulk replacing tasks.

// IsSubscribed reports whether userID is subscribed to taskID.
func (d *DB) IsSubscribed(ctx context.Context, userID, taskID int) (bool, error) {
	ok, err := isSubscribed(d.with(ctx), userID, taskID)
	return ok, opError(fmt.Sprintf("check subscription %d/%d", userID, taskID), err)
}

func isSubscribed(q Queryer, userID, taskID int) (bool, error) {
	var n int
	err := q.QueryRow("SELECT COUNT(*) FROM subscriptions WHERE user_id = ? AND task = ?", userID, taskID).Scan(&n)
	if err != nil {
		return false, scanError("check subscription", err)
	}
	return n > 0, nil
}

func loadSubscriptions(q Queryer, userID int) (map[int]bool, error) {
	rows, err := q.Query("SELECT task FROM subscriptions WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	subs := make(map[int]bool)
	for rows.Next() {
		var task int
		if err := rows.Scan(&task); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs[task] = true
	}
	return subs, rows.Err()
}

type subscription struct {
	userID, taskID int
}

func loadAllSubscriptions(q Queryer) ([]subscription, error) {
	rows, err := q.Query("SELECT user_id, task FROM subscriptions")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var subs []subscription
	for rows.Next() {
		var s subscription
		if err := rows.Scan(&s.userID, &s.taskID); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func subscribe(q Queryer, userID, taskID int) error {
	_, err := q.Exec(`INSERT INTO subscriptions (user_id, task) VALUES (?, ?)
		ON CONFLICT (user_id, task) DO NOTHING`, userID, taskID)
	return err
}

func unsubscribe(q Queryer, userID, taskID int) error {
	_, err := q.Exec("DELETE FROM subscriptions WHERE user_id = ? AND task = ?", userID, taskID)
	return err
}
