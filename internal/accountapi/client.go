package accountapi

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/common"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/logging"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/shared"
)

const (
	accountService = "/epiclinx.onboarding.v1.AccountService/"
	paymentService = "/epiclinx.billing.v1.PaymentService/"

	MethodRegisterProfile     = accountService + "RegisterProfile"
	MethodRecordAuthorization = accountService + "RecordAuthorization"
	MethodSetCredentials      = accountService + "SetCredentials"
	MethodFinalizePreferences = accountService + "FinalizePreferences"
	MethodGetCurrentAccount   = accountService + "GetCurrentAccount"

	MethodCreateAuthorizationContext = paymentService + "CreateAuthorizationContext"
	MethodConfirmAuthorization       = paymentService + "ConfirmAuthorization"

	requestIDHeader = "x-request-id"

	DefaultTimeout = 15 * time.Second
)

// Client talks to the account and payment services over one connection.
// It satisfies onboarding.AccountAPI, onboarding.PaymentAuthorization and
// onboarding.AuthSession.
type Client struct {
	conn    *grpc.ClientConn
	tokens  *tokenStore
	timeout time.Duration
	log     logging.Logger
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	timeout  time.Duration
	log      logging.Logger
	dialOpts []grpc.DialOption
	now      func() time.Time
}

// WithTimeout bounds every call.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithDialOptions appends extra grpc dial options (TLS credentials, a
// custom dialer for tests).
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, opts...) }
}

// New creates a client for addr. It does not connect until the first call.
func New(addr string, opts ...Option) (*Client, error) {
	o := options{timeout: DefaultTimeout, log: logging.Nop{}, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		tokens:  &tokenStore{now: o.now},
		timeout: o.timeout,
		log:     o.log,
	}

	dial := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}
	dial = append(dial, o.dialOpts...)

	conn, err := grpc.NewClient(addr, dial...)
	if err != nil {
		return nil, fmt.Errorf("account api client: %w", err)
	}
	c.conn = conn
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the session token and a request id.
// A token the server refuses ends the session.
func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	token, err := c.tokens.get()
	if err != nil {
		c.log.Info(ctx, "access token expired, calling without it", "method", method)
	}
	ctx = withAccessToken(ctx, token)

	if id, err := shared.RequestID(8); err == nil {
		ctx = metadata.AppendToOutgoingContext(ctx, requestIDHeader, id)
	}

	err = invoker(ctx, method, req, reply, cc, opts...)
	if err != nil && token != "" && status.Code(err) == codes.Unauthenticated {
		c.tokens.clear()
	}
	return err
}

func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrConflict, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// mutate runs an account mutation and adopts any access token it returns.
func (c *Client) mutate(ctx context.Context, method string, fields map[string]any) (*models.AccountRecord, error) {
	out, err := c.invoke(ctx, method, fields)
	if err != nil {
		return nil, c.mapError(err)
	}
	acct := accountFromStruct(out)
	if acct.AccessToken != "" {
		c.tokens.set(acct.AccessToken)
	}
	return acct, nil
}

func (c *Client) RegisterProfile(ctx context.Context, p models.ProfilePayload) (*models.AccountRecord, error) {
	profile := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields.Stripped() {
		profile[k] = v
	}
	return c.mutate(ctx, MethodRegisterProfile, map[string]any{
		"role":    string(p.Role),
		"email":   p.Email,
		"profile": profile,
	})
}

func (c *Client) RecordAuthorization(ctx context.Context, email, authorizationSessionID, abn string) (*models.AccountRecord, error) {
	return c.mutate(ctx, MethodRecordAuthorization, map[string]any{
		"email":                  email,
		"authorizationSessionId": authorizationSessionID,
		"abn":                    abn,
	})
}

func (c *Client) SetCredentials(ctx context.Context, email, username string, password []byte) (*models.AccountRecord, error) {
	return c.mutate(ctx, MethodSetCredentials, map[string]any{
		"email":    email,
		"username": username,
		"password": string(password),
	})
}

func (c *Client) FinalizePreferences(ctx context.Context, p models.PreferencesPayload) (*models.AccountRecord, error) {
	return c.mutate(ctx, MethodFinalizePreferences, map[string]any{
		"email":                p.Email,
		"heardAboutUs":         p.HeardAboutUs,
		"notificationsEnabled": p.NotificationsEnabled,
		"agreedToTerms":        p.AgreedToTerms,
	})
}

// FetchCurrentAccount returns (nil, nil) when there is no authenticated
// session or the session has no account behind it.
func (c *Client) FetchCurrentAccount(ctx context.Context) (*models.AccountRecord, error) {
	if token, _ := c.tokens.get(); token == "" {
		return nil, nil
	}
	out, err := c.invoke(ctx, MethodGetCurrentAccount, map[string]any{})
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound, codes.Unauthenticated:
			return nil, nil
		}
		return nil, c.mapError(err)
	}
	return accountFromStruct(out), nil
}

// Invalidate drops the authenticated session held by the client.
func (c *Client) Invalidate(ctx context.Context) error {
	c.tokens.clear()
	c.log.Debug(ctx, "api session invalidated")
	return nil
}

// SetAccessToken adopts a token obtained elsewhere (for example a resumed
// browser session).
func (c *Client) SetAccessToken(token string) {
	c.tokens.set(token)
}

func (c *Client) CreateContext(ctx context.Context, req models.AuthorizationRequest) models.AuthorizationResult {
	out, err := c.invoke(ctx, MethodCreateAuthorizationContext, map[string]any{
		"email":             req.Email,
		"plan":              req.Plan,
		"currency":          req.Currency,
		"recurringInterval": req.RecurringInterval,
		"trial":             req.Trial,
	})
	if err != nil {
		return c.authorizationFailure(err)
	}
	token := stringField(out, "clientSecret")
	if token == "" {
		return models.AuthorizationResult{Kind: models.AuthorizationError, Message: "authorization context without client secret"}
	}
	return models.AuthorizationResult{Kind: models.AuthorizationSuccess, Token: token}
}

func (c *Client) Confirm(ctx context.Context, token, paymentDetails string) models.AuthorizationResult {
	out, err := c.invoke(ctx, MethodConfirmAuthorization, map[string]any{
		"clientSecret":   token,
		"paymentDetails": paymentDetails,
	})
	if err != nil {
		return c.authorizationFailure(err)
	}
	id := stringField(out, "authorizationSessionId")
	if id == "" {
		return models.AuthorizationResult{Kind: models.AuthorizationError, Message: "confirmation without authorization session id"}
	}
	return models.AuthorizationResult{Kind: models.AuthorizationSuccess, SessionID: id}
}

// authorizationFailure turns a transport error of the payment service into
// a tagged result. AlreadyExists means an earlier attempt already
// authorized the payment; FailedPrecondition is a decline.
func (c *Client) authorizationFailure(err error) models.AuthorizationResult {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.AlreadyExists:
		return models.AuthorizationResult{Kind: models.AuthorizationConflict, Message: st.Message()}
	case codes.FailedPrecondition:
		return models.AuthorizationResult{Kind: models.AuthorizationDeclined, Message: st.Message()}
	default:
		return models.AuthorizationResult{Kind: models.AuthorizationError, Message: st.Message(), Err: c.mapError(err)}
	}
}

func accountFromStruct(s *structpb.Struct) *models.AccountRecord {
	return &models.AccountRecord{
		ID:                 stringField(s, "id"),
		Email:              stringField(s, "email"),
		Role:               models.Role(stringField(s, "role")),
		Username:           stringField(s, "username"),
		AuthorizationID:    stringField(s, "authorizationSessionId"),
		OnboardingComplete: s.GetFields()["onboardingComplete"].GetBoolValue(),
		AccessToken:        stringField(s, "accessToken"),
	}
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}
