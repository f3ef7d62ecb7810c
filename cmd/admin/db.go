package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	levelID := fs.String("level", "", "level id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	actor := fs.String("actor", "", "actor filter (fills)")
	aabb := fs.String("aabb", "", "mark position filter x1,y1,z1:x2,y2,z2 (fills)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*levelID) == "" {
			fmt.Fprintln(os.Stderr, "missing -level or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "levels", *levelID, "index", "fills.sqlite")
	}
	if *limit <= 0 {
		*limit = 20
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "snapshots":
		err = querySnapshots(db, *limit)
	case "fills":
		f := fillFilter{Actor: strings.TrimSpace(*actor), Limit: *limit}
		if *aabb != "" {
			min, max, perr := parseAABB(*aabb)
			if perr != nil {
				fmt.Fprintln(os.Stderr, "bad -aabb:", perr)
				os.Exit(2)
			}
			f.Min, f.Max, f.HasBox = min, max, true
		}
		err = queryFills(db, f)
	case "catalogs":
		err = queryCatalogs(db)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(snapshots|fills|catalogs)")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

func querySnapshots(db *sql.DB, limit int) error {
	rows, err := db.Query(`SELECT seq,level_id,path,seed,width,height,length,digest FROM snapshots ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Seq     int64  `json:"seq"`
			LevelID string `json:"level_id"`
			Path    string `json:"path"`
			Seed    int64  `json:"seed"`
			Width   int    `json:"width"`
			Height  int    `json:"height"`
			Length  int    `json:"length"`
			Digest  string `json:"digest"`
		}
		if err := rows.Scan(&r.Seq, &r.LevelID, &r.Path, &r.Seed, &r.Width, &r.Height, &r.Length, &r.Digest); err != nil {
			return err
		}
		printJSON(r)
	}
	return rows.Err()
}

type fillFilter struct {
	Actor    string
	HasBox   bool
	Min, Max [3]int
	Limit    int
}

// query builds the fills SELECT for f, newest first.
func (f fillFilter) query() (string, []any) {
	var where []string
	var args []any
	if f.Actor != "" {
		where = append(where, "actor=?")
		args = append(args, f.Actor)
	}
	if f.HasBox {
		where = append(where, "x BETWEEN ? AND ?", "y BETWEEN ? AND ?", "z BETWEEN ? AND ?")
		args = append(args, f.Min[0], f.Max[0], f.Min[1], f.Max[1], f.Min[2], f.Max[2])
	}
	q := `SELECT seq,time,actor,rank,action,x,y,z,COALESCE(status,''),changed,COALESCE(code,'') FROM fills`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY seq DESC LIMIT ?"
	args = append(args, f.Limit)
	return q, args
}

func queryFills(db *sql.DB, f fillFilter) error {
	q, args := f.query()
	rows, err := db.Query(q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Seq     int64  `json:"seq"`
			Time    string `json:"time"`
			Actor   string `json:"actor"`
			Rank    string `json:"rank"`
			Action  string `json:"action"`
			Pos     [3]int `json:"pos"`
			Status  string `json:"status,omitempty"`
			Changed int    `json:"changed"`
			Code    string `json:"code,omitempty"`
		}
		if err := rows.Scan(&r.Seq, &r.Time, &r.Actor, &r.Rank, &r.Action, &r.Pos[0], &r.Pos[1], &r.Pos[2], &r.Status, &r.Changed, &r.Code); err != nil {
			return err
		}
		printJSON(r)
	}
	return rows.Err()
}

func queryCatalogs(db *sql.DB) error {
	rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Name      string `json:"name"`
			Digest    string `json:"digest"`
			UpdatedAt string `json:"updated_at"`
		}
		if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
			return err
		}
		printJSON(r)
	}
	return rows.Err()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
