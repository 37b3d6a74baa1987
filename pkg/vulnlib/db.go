package vulnlib

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const dbFileName = "depcheck.db"

// DatabaseFile is the embedded database location inside a data directory.
func DatabaseFile(store string) string {
	return filepath.Join(store, dbFileName)
}

func (cli *Client) Init() error {
	var (
		db  *sql.DB
		err error
	)

	switch cli.driver {
	case DriverPostgres:
		if cli.connStr == "" {
			return errors.New("a connection string is required for the postgres driver")
		}
		db, err = sql.Open(DriverPostgres, postgresDSN(cli.connStr, cli.user, cli.password))
	default:
		if err = mkFolder(cli.Store); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn := cli.connStr
		if dsn == "" {
			dsn = DatabaseFile(cli.Store)
		}
		db, err = sql.Open(DriverSQLite, dsn)
	}
	if err != nil {
		return err
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	cli.DB = db

	if err = cli.migrate(); err != nil {
		db.Close()
		cli.DB = nil
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

func (cli *Client) Close() error {
	if cli.DB == nil {
		return nil
	}
	err := cli.DB.Close()
	cli.DB = nil
	return err
}

func postgresDSN(conn, user, password string) string {
	if strings.Contains(conn, "://") {
		return conn
	}
	if user != "" && !strings.Contains(conn, "user=") {
		conn += " user=" + user
	}
	if password != "" && !strings.Contains(conn, "password=") {
		conn += " password=" + password
	}
	return strings.TrimSpace(conn)
}

func (cli *Client) migrate() error {
	id := `"ID" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT`
	if cli.driver == DriverPostgres {
		id = `"ID" SERIAL PRIMARY KEY`
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS vulns (
			` + id + `,
			"Hash" TEXT UNIQUE,
			"Vendor" TEXT,
			"Product" TEXT,
			"MaxVersion" TEXT,
			"MinVersion" TEXT,
			"Description" TEXT,
			"Level" TEXT,
			"CVEID" TEXT,
			"PublishDate" TEXT,
			"Score" REAL,
			"Source" TEXT,
			"References" TEXT);`,
		`CREATE INDEX IF NOT EXISTS idx_vulns_product ON vulns ("Product", "Vendor");`,
		`CREATE TABLE IF NOT EXISTS properties (
			"ID" TEXT NOT NULL PRIMARY KEY,
			"Value" TEXT);`,
	}

	for _, stmt := range statements {
		if _, err := cli.DB.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// rebind rewrites '?' placeholders for drivers using positional '$n' markers.
func (cli *Client) rebind(query string) string {
	if cli.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rowHash(r *DBRow) string {
	hash := md5.Sum([]byte(fmt.Sprintf("%s%s%s%s%s", r.Vendor, r.Product, r.MaxVersion, r.MinVersion, r.CVEID)))
	return hex.EncodeToString(hash[:])
}

// Insert stores rows in one transaction. A row already present for the same
// product range and CVE takes the new score, severity and description.
func (cli *Client) Insert(ctx context.Context, rows ...*DBRow) error {
	tx, err := cli.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, cli.rebind(`INSERT INTO vulns
		("Hash", "Vendor", "Product", "MaxVersion", "MinVersion", "Description", "Level", "CVEID", "PublishDate", "Score", "Source", "References")
		VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT ("Hash") DO UPDATE SET
		"Description" = excluded."Description", "Level" = excluded."Level",
		"PublishDate" = excluded."PublishDate", "Score" = excluded."Score",
		"Source" = excluded."Source", "References" = excluded."References"`))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err = stmt.ExecContext(ctx, rowHash(r), r.Vendor, r.Product,
			r.MaxVersion, r.MinVersion, r.Description,
			r.Level, r.CVEID, r.PublishDate,
			r.Score, r.Source, r.References)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (cli *Client) query(sqlRow string, args ...interface{}) ([]*DBRow, error) {
	dbRows := []*DBRow{}

	rows, err := cli.DB.Query(cli.rebind(sqlRow), args...)
	if err != nil {
		return dbRows, err
	}

	defer rows.Close()

	for rows.Next() {
		r := &DBRow{}
		err = rows.Scan(&r.Id, &r.Hash, &r.Vendor, &r.Product,
			&r.MaxVersion, &r.MinVersion, &r.Description,
			&r.Level, &r.CVEID, &r.PublishDate,
			&r.Score, &r.Source, &r.References)

		if err != nil {
			return dbRows, err
		}

		dbRows = append(dbRows, r)
	}

	if err = rows.Err(); err != nil {
		return dbRows, err
	}

	return dbRows, nil
}

const selectColumns = `SELECT "ID", "Hash", "Vendor", "Product", "MaxVersion", "MinVersion", "Description",
	"Level", "CVEID", "PublishDate", "Score", "Source", "References" FROM vulns`

func (cli *Client) QueryVulnByProduct(vendor, product string) ([]*DBRow, error) {
	return cli.query(selectColumns+` WHERE "Product" = ? AND "Vendor" = ?`, product, vendor)
}

// QueryVulnByCVEID returns the rows recorded for one CVE.
func (cli *Client) QueryVulnByCVEID(cveid string) ([]*DBRow, error) {
	return cli.query(selectColumns+` WHERE "CVEID" = ?`, cveid)
}

func (cli *Client) ProductExists(vendor, product string) (bool, error) {
	var n int
	err := cli.DB.QueryRow(cli.rebind(`SELECT COUNT(1) FROM vulns WHERE "Product" = ? AND "Vendor" = ?`),
		product, vendor).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// VendorsForProduct lists the distinct vendors publishing a product name.
func (cli *Client) VendorsForProduct(product string) ([]string, error) {
	rows, err := cli.DB.Query(cli.rebind(`SELECT DISTINCT "Vendor" FROM vulns WHERE "Product" = ? ORDER BY "Vendor"`), product)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vendors []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// HasData reports whether any vulnerability has been loaded.
func (cli *Client) HasData() (bool, error) {
	var n int
	if err := cli.DB.QueryRow(`SELECT COUNT(1) FROM vulns`).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (cli *Client) GetProperty(key string) (string, error) {
	var value string
	err := cli.DB.QueryRow(cli.rebind(`SELECT "Value" FROM properties WHERE "ID" = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (cli *Client) SetProperty(key, value string) error {
	_, err := cli.DB.Exec(cli.rebind(`INSERT INTO properties ("ID", "Value") VALUES (?, ?)
		ON CONFLICT ("ID") DO UPDATE SET "Value" = excluded."Value"`), key, value)
	return err
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func mkFolder(path string) error {
	if !exists(path) {
		err := os.MkdirAll(path, os.FileMode(0755))
		if err != nil {
			return err
		}
	}
	return nil
}
