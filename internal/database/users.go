package database

import (
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// BotUsername is the reserved account name for the singleton bot user.
const BotUsername = "__word_extremist_bot__"

// xpPerLevel is the linear level curve: level = xp/xpPerLevel + 1.
const xpPerLevel = 1000

// CreateUser creates a new player account with a bcrypt-hashed password
func (d *Database) CreateUser(username, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	result, err := d.db.Exec(
		`INSERT INTO users (username, password_hash, xp, level, is_bot) VALUES (?, ?, 0, 1, 0)`,
		username, string(hash),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new user id: %v", err)
	}

	return d.GetUserByID(id)
}

// GetUserByID retrieves a user by id
func (d *Database) GetUserByID(id int64) (*User, error) {
	return d.scanUser(d.db.QueryRow(
		`SELECT id, username, password_hash, xp, level, is_bot, last_login, created_at
		 FROM users WHERE id = ?`, id))
}

// GetUserByUsername retrieves a user by username
func (d *Database) GetUserByUsername(username string) (*User, error) {
	return d.scanUser(d.db.QueryRow(
		`SELECT id, username, password_hash, xp, level, is_bot, last_login, created_at
		 FROM users WHERE username = ?`, username))
}

// VerifyPassword checks a username/password pair and records the login time
func (d *Database) VerifyPassword(username, password string) (*User, error) {
	user, err := d.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	now := time.Now()
	if _, err := d.db.Exec(`UPDATE users SET last_login = ? WHERE id = ?`, now, user.ID); err == nil {
		user.LastLogin = &now
	}

	return user, nil
}

// GetSingletonBotUser returns the reserved bot account, creating it on first use.
func (d *Database) GetSingletonBotUser() (*User, error) {
	user, err := d.GetUserByUsername(BotUsername)
	if err == nil {
		return user, nil
	}

	_, err = d.db.Exec(
		`INSERT INTO users (username, password_hash, xp, level, is_bot) VALUES (?, '', 0, 1, 1)`,
		BotUsername,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot user: %v", err)
	}

	return d.GetUserByUsername(BotUsername)
}

// GrantXP adds experience to a player and recomputes their level
func (d *Database) GrantXP(userID int64, amount int) error {
	_, err := d.db.Exec(
		`UPDATE users SET xp = xp + ?, level = (xp + ?) / ? + 1 WHERE id = ?`,
		amount, amount, xpPerLevel, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to grant xp: %v", err)
	}
	return nil
}

func (d *Database) scanUser(row *sql.Row) (*User, error) {
	var user User
	var lastLogin sql.NullTime
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.XP,
		&user.Level, &user.IsBot, &lastLogin, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan user: %v", err)
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return &user, nil
}
