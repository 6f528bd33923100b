package db

import (
	"context"
	"time"

	"github.com/susu3304/chipledger/internal/ledger"
)

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	GuildID   *int64    `json:"guild_id,omitempty"`
	ChannelID *string   `json:"channel_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (db *DB) CreateGroup(ctx context.Context, g Group) error {
	_, err := db.pool.Exec(ctx,
		"INSERT INTO groups (id, name, owner_id, created_at) VALUES ($1, $2, $3, $4)",
		g.ID, g.Name, g.OwnerID, g.CreatedAt,
	)
	return mapErr(err)
}

func (db *DB) GetGroup(ctx context.Context, id string) (*Group, error) {
	var g Group
	err := db.pool.QueryRow(ctx,
		"SELECT id, name, owner_id, guild_id, channel_id, created_at FROM groups WHERE id = $1",
		id,
	).Scan(&g.ID, &g.Name, &g.OwnerID, &g.GuildID, &g.ChannelID, &g.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

func (db *DB) ListGroups(ctx context.Context, ownerID string) ([]Group, error) {
	rows, err := db.pool.Query(ctx,
		"SELECT id, name, owner_id, guild_id, channel_id, created_at FROM groups WHERE owner_id = $1 ORDER BY created_at, id",
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.OwnerID, &g.GuildID, &g.ChannelID, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// LinkChannel binds a group to a Discord channel. A channel can be linked to
// one group only.
func (db *DB) LinkChannel(ctx context.Context, groupID string, guildID int64, channelID string) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		"UPDATE groups SET guild_id = NULL, channel_id = NULL WHERE channel_id = $1 AND id <> $2",
		channelID, groupID,
	); err != nil {
		return err
	}
	ct, err := tx.Exec(ctx,
		"UPDATE groups SET guild_id = $2, channel_id = $3 WHERE id = $1",
		groupID, guildID, channelID,
	)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (db *DB) GroupByChannel(ctx context.Context, channelID string) (*Group, error) {
	var g Group
	err := db.pool.QueryRow(ctx,
		"SELECT id, name, owner_id, guild_id, channel_id, created_at FROM groups WHERE channel_id = $1",
		channelID,
	).Scan(&g.ID, &g.Name, &g.OwnerID, &g.GuildID, &g.ChannelID, &g.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

func (db *DB) AddPlayer(ctx context.Context, groupID string, p ledger.Player) error {
	_, err := db.pool.Exec(ctx,
		"INSERT INTO players (id, group_id, name) VALUES ($1, $2, $3)",
		p.ID, groupID, p.Name,
	)
	return mapErr(err)
}

func (db *DB) ListPlayers(ctx context.Context, groupID string) ([]ledger.Player, error) {
	rows, err := db.pool.Query(ctx,
		"SELECT id, name FROM players WHERE group_id = $1 ORDER BY name",
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []ledger.Player
	for rows.Next() {
		var p ledger.Player
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
