package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// mockTx создаёт минимальный мок для передачи в BeforeSave
// В реальности BeforeSave не использует tx напрямую, но сигнатура требует его
var mockTx *gorm.DB = nil

func TestUser_BeforeSave_HashesPassword(t *testing.T) {
	// Arrange: пользователь с открытым паролем
	plainPassword := "mySecretPassword123"
	user := &User{
		Name:     "testuser",
		Email:    "test@example.com",
		Password: plainPassword,
	}

	// Act
	err := user.BeforeSave(mockTx)

	// Assert
	require.NoError(t, err, "BeforeSave не должен возвращать ошибку")
	assert.NotEqual(t, plainPassword, user.Password, "Пароль должен быть изменён после хеширования")

	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(plainPassword))
	assert.NoError(t, err, "Хеш должен соответствовать исходному паролю")
}

func TestUser_BeforeSave_SkipsAlreadyHashedPassword(t *testing.T) {
	// Arrange: пароль уже является bcrypt-хешем
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("alreadyHashed"), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &User{
		Name:     "testuser",
		Email:    "test@example.com",
		Password: string(hashedPassword),
	}
	originalHash := user.Password

	// Act
	err = user.BeforeSave(mockTx)

	// Assert: нет двойного хеширования
	require.NoError(t, err)
	assert.Equal(t, originalHash, user.Password, "Уже хешированный пароль не должен изменяться")
}

func TestUser_CheckPassword(t *testing.T) {
	// Arrange
	user := &User{Password: "correctPassword"}
	require.NoError(t, user.BeforeSave(mockTx))

	// Assert
	assert.True(t, user.CheckPassword("correctPassword"))
	assert.False(t, user.CheckPassword("wrongPassword"))
	assert.False(t, user.CheckPassword(""))
}
