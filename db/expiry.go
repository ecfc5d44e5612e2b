package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/migadu/dovecot-expunge/config"
	"github.com/migadu/dovecot-expunge/pkg/metrics"
)

// ExpiryRecord is one enabled expiry policy: messages in Mailbox of User
// saved more than ExpiryDays days ago are to be expunged.
type ExpiryRecord struct {
	User       string // local-part@domain; empty when the policy has no account
	Mailbox    string
	ExpiryDays int
}

const mysqlExpiryQuery = "SELECT CONCAT(`accounts`.`username`, '@', `domains`.`domain`) AS `user`, " +
	"`expiry`.`mailbox` AS `mailbox`, `expiry`.`expiry` AS `expiry` " +
	"FROM `expiry` " +
	"LEFT JOIN `accounts` ON `expiry`.`account_id` = `accounts`.`id` " +
	"LEFT JOIN `domains` ON `accounts`.`domain_id` = `domains`.`id` " +
	"WHERE `expiry`.`enabled`"

// Used by pgsql and sqlite, which concatenate with ||.
const ansiExpiryQuery = `
	SELECT accounts.username || '@' || domains.domain AS "user", expiry.mailbox AS mailbox, expiry.expiry AS expiry
	FROM expiry
	LEFT JOIN accounts ON expiry.account_id = accounts.id
	LEFT JOIN domains ON accounts.domain_id = domains.id
	WHERE expiry.enabled`

func expiryQuery(driver string) string {
	if driver == config.DriverMySQL {
		return mysqlExpiryQuery
	}
	return ansiExpiryQuery
}

// ExpiryRecords returns every enabled expiry policy joined with its account and domain.
func (d *Database) ExpiryRecords(ctx context.Context) (records []ExpiryRecord, err error) {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("expiry_records", metrics.StatusLabel(err)).Observe(time.Since(start).Seconds())
	}()

	rows, err := d.db.QueryContext(ctx, expiryQuery(d.driver))
	if err != nil {
		return nil, fmt.Errorf("failed to query expiry policies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var user sql.NullString
		var rec ExpiryRecord
		if err := rows.Scan(&user, &rec.Mailbox, &rec.ExpiryDays); err != nil {
			return nil, fmt.Errorf("failed to scan expiry policy: %w", err)
		}
		rec.User = user.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read expiry policies: %w", err)
	}

	return records, nil
}
