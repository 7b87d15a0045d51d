package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JoeShih716/go-atm/internal/app/atm/domain"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "cards", (&sqlCard{}).TableName())
	assert.Equal(t, "accounts", (&sqlAccount{}).TableName())
	assert.Equal(t, "sessions", (&sqlSession{}).TableName())
	assert.Equal(t, "transactions", (&sqlTransaction{}).TableName())
}

func TestAccountToDomain(t *testing.T) {
	row := sqlAccount{ID: 7, CardNumber: "13572468", Position: 1, Number: "22224444", Balance: 50, Available: true}
	assert.Equal(t, domain.Account{Number: "22224444", Balance: 50, Available: true}, row.toDomain())
}

func TestSessionCardEmptyToken(t *testing.T) {
	_, err := sessionCard(nil, "")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
