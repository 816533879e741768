package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/user"
	"github.com/trezcool/shkola/services/ratelimit"
)

const (
	tokenContextKey     = "userToken"
	principalContextKey = "principal"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Role         user.Role `json:"role"`
	UserID       int       `json:"uid"`
	Email        string    `json:"email,omitempty"`
}

func (c Claims) Principal() user.Principal {
	return user.Principal{Role: c.Role, ID: c.UserID, Email: c.Email}
}

func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// GetPrincipalClaims returns the claims of a new token for p.
// origIat is the issue time of the first token of the session, now when omitted.
func GetPrincipalClaims(conf *core.Config, p user.Principal, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   string(p.Role) + ":" + strconv.Itoa(p.ID),
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Role:         p.Role,
		UserID:       p.ID,
		Email:        p.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	cfg := jwtConfig(conf)
	token := jwt.NewWithClaims(jwt.GetSigningMethod(cfg.SigningMethod), claims)

	ss, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func contextPrincipal(ctx echo.Context) (user.Principal, error) {
	if p, ok := ctx.Get(principalContextKey).(user.Principal); ok {
		return p, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.Principal{}, err
	}
	p := claims.Principal()
	ctx.Set(principalContextKey, p)
	return p, nil
}

type authApi struct {
	conf     *core.Config
	svc      *user.Service
	limiter  ratelimit.Limiter
	validate *validator.Validate
}

func registerAuthAPI(g, authed *echo.Group, opts *Options) {
	api := authApi{
		conf:     opts.Conf,
		svc:      opts.Users,
		limiter:  opts.Limiter,
		validate: opts.Validate,
	}

	// TODO: rate limit `/token-refresh` per principal
	g.POST("/auth/login", api.login)
	authed.POST("/auth/token-refresh", api.refreshToken)
	authed.GET("/users/me", api.me)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if api.limiter != nil {
		d := api.limiter.Allow(ctx.Request().Context(), ctx.RealIP()+"|"+data.Email)
		if !d.Allowed {
			ctx.Response().Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter(time.Now()).Seconds())+1))
			return errTooManyAttempts
		}
	}

	p, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Is(err, user.ErrAuthenticationFailed) {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}

	token, err := GenerateToken(api.conf, GetPrincipalClaims(api.conf, p))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Principal: p})
}

// refreshToken re-issues a token to a caller that still resolves to the same principal,
// as long as the refresh window of its session has not expired.
func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(api.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	acc, err := api.svc.Resolve(ctx.Request().Context(), claims.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return errUnauthorized
		}
		return errors.Wrap(err, "resolving account")
	}
	p := acc.Principal()
	if p.Role != claims.Role || p.ID != claims.UserID {
		return errUnauthorized
	}

	token, err := GenerateToken(api.conf, GetPrincipalClaims(api.conf, p, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Principal: p})
}

func (api *authApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	acc, err := api.svc.Resolve(ctx.Request().Context(), claims.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return errUnauthorized
		}
		return errors.Wrap(err, "resolving account")
	}
	return ctx.JSON(http.StatusOK, acc)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token     string         `json:"token"`
		Principal user.Principal `json:"principal"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
