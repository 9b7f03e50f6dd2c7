package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `user_id, role, email, password_hash, full_name, phone, city,
	hotel_name, hotel_address, hotel_website, hotel_description, hotel_phone, hotel_contact_person, created_at`

// Create inserts a user.  The caller supplies the id and the bcrypt hash.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	var h model.Hotel
	var hotelName *string
	if u.Hotel != nil {
		h = *u.Hotel
		hotelName = &h.Name
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (user_id, role, email, password_hash, full_name, phone, city,
			hotel_name, hotel_address, hotel_website, hotel_description, hotel_phone, hotel_contact_person)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, string(u.Role), u.Email, u.PasswordHash, u.FullName, u.Phone, u.City,
		hotelName, h.Address, h.Website, h.Description, h.Phone, h.ContactPerson)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// EmailExists reports whether an account already uses email.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email=?",
		strings.ToLower(strings.TrimSpace(email))).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count users by email: %w", err)
	}
	return n > 0, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE user_id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var (
		u                                                        model.User
		role                                                     string
		fullName, phone, city                                    sql.NullString
		hName, hAddr, hSite, hDesc, hPhone, hContact             sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&u.ID, &role, &u.Email, &u.PasswordHash,
		&fullName, &phone, &city, &hName, &hAddr, &hSite, &hDesc, &hPhone, &hContact, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	if u.Role, err = model.ParseRole(role); err != nil {
		return nil, err
	}
	u.FullName, u.Phone, u.City = nullStr(fullName), nullStr(phone), nullStr(city)
	if hName.Valid {
		u.Hotel = &model.Hotel{
			Name:          hName.String,
			Address:       nullStr(hAddr),
			Website:       nullStr(hSite),
			Description:   nullStr(hDesc),
			Phone:         nullStr(hPhone),
			ContactPerson: nullStr(hContact),
		}
	}
	return &u, nil
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
