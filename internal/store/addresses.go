package store

import (
	"context"
	"database/sql"
	"fmt"
	"unicode"

	"github.com/rahmah/go-bakery-store/internal/database"
	"github.com/rahmah/go-bakery-store/internal/models"
)

const addressSelect = `
	SELECT id, user_id, label, recipient_name, phone_number, street, city, province, postal_code, country, notes, is_default, created_at, updated_at
	FROM addresses`

func scanAddress(scan func(...any) error) (*models.Address, error) {
	address := &models.Address{}
	err := scan(
		&address.ID,
		&address.UserID,
		&address.Label,
		&address.RecipientName,
		&address.PhoneNumber,
		&address.Street,
		&address.City,
		&address.Province,
		&address.PostalCode,
		&address.Country,
		&address.Notes,
		&address.IsDefault,
		&address.CreatedAt,
		&address.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return address, nil
}

// CreateAddress stores the address as given. Completeness is only enforced
// at checkout, so a sparse address book entry is allowed here.
func CreateAddress(ctx context.Context, db *sql.DB, a *models.Address) (*models.Address, error) {
	created, err := scanAddress(db.QueryRowContext(ctx,
		`INSERT INTO addresses (user_id, label, recipient_name, phone_number, street, city, province, postal_code, country, notes, is_default, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		 RETURNING id, user_id, label, recipient_name, phone_number, street, city, province, postal_code, country, notes, is_default, created_at, updated_at`,
		a.UserID, a.Label, a.RecipientName, a.PhoneNumber, a.Street, a.City,
		a.Province, a.PostalCode, a.Country, a.Notes, a.IsDefault).Scan)
	if err != nil {
		return nil, fmt.Errorf("create address: %w", err)
	}
	return created, nil
}

// GetAddress enforces ownership: another user's address id behaves as absent.
func GetAddress(ctx context.Context, db *sql.DB, id, userID int64) (*models.Address, error) {
	address, err := scanAddress(db.QueryRowContext(ctx, addressSelect+`
	WHERE id = $1 AND user_id = $2`, id, userID).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrAddressNotFound
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	return address, nil
}

func getAddressByID(ctx context.Context, q querier, id int64) (*models.Address, error) {
	address, err := scanAddress(q.QueryRowContext(ctx, addressSelect+`
	WHERE id = $1`, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrAddressNotFound
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	return address, nil
}

func ListAddresses(ctx context.Context, db *sql.DB, userID int64) ([]models.Address, error) {
	rows, err := db.QueryContext(ctx, addressSelect+`
	WHERE user_id = $1
	ORDER BY is_default DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []models.Address
	for rows.Next() {
		address, err := scanAddress(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addresses = append(addresses, *address)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return addresses, nil
}

// ValidateAddressComplete checks the fields a courier needs. Thresholds match
// the storefront's address form.
func ValidateAddressComplete(a *models.Address) error {
	switch {
	case a == nil,
		len(a.RecipientName) < 5,
		a.PhoneNumber == "",
		len(a.Street) < 10,
		len(a.City) < 3,
		!validPostalCode(a.PostalCode):
		return database.ErrIncompleteAddress
	}
	return nil
}

func validPostalCode(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
