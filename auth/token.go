package auth

import (
	"time"

	"ctfhost/config"
	"ctfhost/repository"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	TeamId  int    `json:"team_id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
	Exp     int64  `json:"exp"`
}

func (claims *Claims) FromJWTClaims(jwtClaims jwt.Claims) {
	mapClaims := jwtClaims.(jwt.MapClaims)
	if mapClaims["team_id"] != nil {
		claims.TeamId = int(mapClaims["team_id"].(float64))
	}
	if mapClaims["name"] != nil {
		claims.Name = mapClaims["name"].(string)
	}
	if mapClaims["is_admin"] != nil {
		claims.IsAdmin = mapClaims["is_admin"].(bool)
	}
	if mapClaims["exp"] != nil {
		claims.Exp = int64(mapClaims["exp"].(float64))
	}
}

func (claims *Claims) Valid() error {
	if time.Now().Unix() > claims.Exp {
		return jwt.ErrTokenExpired
	}
	return nil
}

func CreateToken(team *repository.Team) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{
			"team_id":  team.Id,
			"name":     team.Name,
			"is_admin": team.IsAdmin,
			"exp":      time.Now().Add(time.Hour * 24).Unix(),
		})

	tokenString, err := token.SignedString([]byte(config.Env().JWTSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func ParseToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.Env().JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}
	return token, nil
}
