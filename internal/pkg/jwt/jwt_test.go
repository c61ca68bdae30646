package jwt

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestJWT(t *testing.T) {
	Convey("a generated token validates back to its claims", t, func() {
		j := NewJWT("test-secret", time.Hour)

		token, err := j.GenerateToken("user-1", "moses")
		So(err, ShouldBeNil)
		So(token, ShouldNotBeEmpty)

		claims, err := j.ValidateToken(token)
		So(err, ShouldBeNil)
		So(claims.UserID, ShouldEqual, "user-1")
		So(claims.Username, ShouldEqual, "moses")
	})

	Convey("an expired token maps to ErrExpiredToken", t, func() {
		j := NewJWT("test-secret", -time.Minute)

		token, err := j.GenerateToken("user-1", "moses")
		So(err, ShouldBeNil)

		_, err = j.ValidateToken(token)
		So(err, ShouldEqual, ErrExpiredToken)
	})

	Convey("a token signed with another secret is invalid", t, func() {
		token, err := NewJWT("secret-a", time.Hour).GenerateToken("user-1", "moses")
		So(err, ShouldBeNil)

		_, err = NewJWT("secret-b", time.Hour).ValidateToken(token)
		So(err, ShouldEqual, ErrInvalidToken)
	})

	Convey("garbage input is invalid", t, func() {
		j := NewJWT("test-secret", time.Hour)

		_, err := j.ValidateToken("not.a.token")
		So(err, ShouldEqual, ErrInvalidToken)
	})

	Convey("refresh tokens are opaque and unique", t, func() {
		a := GenerateRefreshToken()
		b := GenerateRefreshToken()
		So(a, ShouldHaveLength, 64)
		So(a, ShouldNotEqual, b)
	})
}
