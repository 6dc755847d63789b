package repository

import (
	"fmt"
	"regexp"

	"gorm.io/gorm"
)

var channelPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// InstallChangeNotifications creates the trigger function and per-table
// triggers that publish row changes on the given NOTIFY channel as
// {"entity": table, "op": insert|update|delete, "record": row}.
//
// NOTIFY payloads are capped just under 8000 bytes. Rows that do not fit are
// sent as {"id": ...} with "partial": true and must be re-read by the
// listener.
func InstallChangeNotifications(db *gorm.DB, channel string) error {
	if !channelPattern.MatchString(channel) {
		return fmt.Errorf("invalid notify channel %q", channel)
	}

	fn := fmt.Sprintf(`
CREATE OR REPLACE FUNCTION notify_pos_change() RETURNS trigger AS $$
DECLARE
	rec json;
	payload text;
BEGIN
	IF TG_OP = 'DELETE' THEN
		rec := row_to_json(OLD);
	ELSE
		rec := row_to_json(NEW);
	END IF;
	payload := json_build_object(
		'entity', TG_TABLE_NAME,
		'op', lower(TG_OP),
		'record', rec
	)::text;
	IF octet_length(payload) > 7900 THEN
		payload := json_build_object(
			'entity', TG_TABLE_NAME,
			'op', lower(TG_OP),
			'partial', true,
			'record', json_build_object('id', rec->'id')
		)::text;
	END IF;
	PERFORM pg_notify('%s', payload);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;`, channel)

	if err := db.Exec(fn).Error; err != nil {
		return fmt.Errorf("create notify function: %w", err)
	}

	for _, table := range []string{"products", "invoices"} {
		stmts := []string{
			fmt.Sprintf(`DROP TRIGGER IF EXISTS %s_notify ON %s`, table, table),
			fmt.Sprintf(`CREATE TRIGGER %s_notify AFTER INSERT OR UPDATE OR DELETE ON %s
				FOR EACH ROW EXECUTE FUNCTION notify_pos_change()`, table, table),
		}
		for _, stmt := range stmts {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("install trigger on %s: %w", table, err)
			}
		}
	}
	return nil
}
