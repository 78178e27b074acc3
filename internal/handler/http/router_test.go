package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	handler "github.com/vasiliy-maslov/petite-maison/internal/handler/http"
	"github.com/vasiliy-maslov/petite-maison/internal/audit"
	"github.com/vasiliy-maslov/petite-maison/internal/auth"
	"github.com/vasiliy-maslov/petite-maison/internal/cart"
	"github.com/vasiliy-maslov/petite-maison/internal/catalog"
	"github.com/vasiliy-maslov/petite-maison/internal/fanzine"
	"github.com/vasiliy-maslov/petite-maison/internal/metrics"
	"github.com/vasiliy-maslov/petite-maison/internal/order"
	"github.com/vasiliy-maslov/petite-maison/internal/user"
)

type testEnv struct {
	router   http.Handler
	provider auth.IdentityProvider
	auth     *MockAuthService
	users    *MockUserService
	catalog  *MockCatalogService
	cart     *MockCartService
	orders   *MockOrderService
	fanzine  *MockFanzineService
	audit    *recordingAudit
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	provider, err := auth.NewJWTProvider("handler-test-secret", time.Hour, 24*time.Hour)
	require.NoError(t, err)

	env := &testEnv{
		provider: provider,
		auth:     new(MockAuthService),
		users:    new(MockUserService),
		catalog:  new(MockCatalogService),
		cart:     new(MockCartService),
		orders:   new(MockOrderService),
		fanzine:  new(MockFanzineService),
		audit:    &recordingAudit{},
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	env.router = handler.NewRouter(handler.Dependencies{
		Provider: provider,
		Auth:     env.auth,
		Users:    env.users,
		Catalog:  env.catalog,
		Cart:     env.cart,
		Orders:   env.orders,
		Fanzine:  env.fanzine,
		Audit:    env.audit,
		Metrics:  env.metrics,
	})
	return env
}

// login mints an access token for a fresh user holding roles.
func (e *testEnv) login(t *testing.T, roles ...user.Role) (uuid.UUID, string) {
	t.Helper()
	u := &user.User{ID: uuid.Must(uuid.NewV4()), Email: "reader@example.com", Roles: roles}
	tokens, err := e.provider.IssueTokens(u, "session-1")
	require.NoError(t, err)
	return u.ID, tokens.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(dst), "Failed to decode response body")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	down := handler.NewRouter(handler.Dependencies{DB: stubPinger{err: errors.New("no conn")}})
	rr = httptest.NewRecorder()
	down.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAuthenticate_RejectsMissingAndInvalidTokens(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodGet, "/cart", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var body handler.ErrorResponse
	decodeBody(t, rr, &body)
	assert.NotEmpty(t, body.Error)
	env.cart.AssertNotCalled(t, "GetCart", mock.Anything, mock.Anything)
}

func TestRequireRole_ForbidsNonBuyers(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(t, user.RoleSeller)

	rr := env.do(t, http.MethodGet, "/cart", "", token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRegister(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		env := newTestEnv(t)
		u := &user.User{ID: uuid.Must(uuid.NewV4()), Email: "anne@example.com", Roles: []user.Role{user.RoleBuyer}, CreatedAt: testNow}
		sess := &auth.Session{Tokens: auth.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresAt: testNow}, User: u}

		env.auth.On("Register", mock.Anything, "anne@example.com", "password123", (*string)(nil), mock.AnythingOfType("string")).
			Return(sess, nil).Once()

		rr := env.do(t, http.MethodPost, "/register", `{"email":"anne@example.com","password":"password123"}`, "")
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp handler.AuthResponse
		decodeBody(t, rr, &resp)
		assert.Equal(t, "a", resp.AccessToken)
		assert.Equal(t, "r", resp.RefreshToken)
		assert.Equal(t, u.ID, resp.User.ID)
		assert.Equal(t, []user.Role{user.RoleBuyer}, resp.User.Roles)
		env.auth.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		env := newTestEnv(t)
		env.auth.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, user.ErrEmailExists).Once()

		rr := env.do(t, http.MethodPost, "/register", `{"email":"anne@example.com","password":"password123"}`, "")
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(t, http.MethodPost, "/register", `{"email":"not-an-email","password":"short"}`, "")
		require.Equal(t, http.StatusBadRequest, rr.Code)

		var resp handler.ValidationErrorResponse
		decodeBody(t, rr, &resp)
		want := map[string]string{
			"Email":    "must be a valid email address",
			"Password": "must be at least 8",
		}
		if diff := cmp.Diff(want, resp.Details); diff != "" {
			t.Errorf("validation details mismatch (-want +got):\n%s", diff)
		}
		env.auth.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown field", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.do(t, http.MethodPost, "/register", `{"email":"a@b.co","password":"password123","role":"ADMIN"}`, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLogin_Failures(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"bad credentials", user.ErrInvalidCredentials, http.StatusUnauthorized},
		{"inactive", user.ErrInactive, http.StatusForbidden},
		{"store down", errors.New("pool closed"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.auth.On("Login", mock.Anything, "anne@example.com", "password123", mock.Anything).Return(nil, tc.err).Once()

			rr := env.do(t, http.MethodPost, "/login", `{"email":"anne@example.com","password":"password123"}`, "")
			assert.Equal(t, tc.wantCode, rr.Code)

			var body handler.ErrorResponse
			decodeBody(t, rr, &body)
			assert.NotContains(t, body.Error, "pool closed", "internal errors are not echoed")
		})
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.auth.On("Logout", mock.Anything, "refresh-token").Return(nil).Once()

	rr := env.do(t, http.MethodPost, "/logout", `{"refresh_token":"refresh-token"}`, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	env.auth.AssertExpectations(t)
}

func TestMe_AndUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.login(t, user.RoleBuyer)
	name := "Anne"
	u := &user.User{ID: userID, Email: "anne@example.com", DisplayName: &name, Roles: []user.Role{user.RoleBuyer}}

	env.users.On("GetUserByID", mock.Anything, userID).Return(u, nil).Twice()

	for _, path := range []string{"/me", "/me/profile"} {
		rr := env.do(t, http.MethodGet, path, "", token)
		require.Equal(t, http.StatusOK, rr.Code, path)
		var resp handler.UserResponse
		decodeBody(t, rr, &resp)
		assert.Equal(t, "Anne", *resp.DisplayName)
	}

	newName := "Anne M."
	updated := &user.User{ID: userID, Email: "anne@example.com", DisplayName: &newName}
	env.users.On("UpdateProfile", mock.Anything, userID, user.ProfileUpdate{DisplayName: &newName}).Return(updated, nil).Once()

	rr := env.do(t, http.MethodPatch, "/me/profile", `{"display_name":"Anne M."}`, token)
	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, env.audit.entries, 1)
	assert.Equal(t, audit.ActionProfileUpdate, env.audit.entries[0].Action)
	assert.Equal(t, "Anne M.", env.audit.entries[0].Details["display_name"])
	env.users.AssertExpectations(t)
}

func TestListProducts_ParsesQuery(t *testing.T) {
	env := newTestEnv(t)
	minPrice := decimal.RequireFromString("10")

	env.catalog.On("ListProducts", mock.Anything, mock.MatchedBy(func(f catalog.ListFilter) bool {
		return f.Category == "ceramique" &&
			f.Search == "bol" &&
			f.MinPrice != nil && f.MinPrice.Equal(minPrice) &&
			f.MaxPrice == nil &&
			f.Featured && !f.Exclusive &&
			f.Sort == "price" && f.Order == "asc" &&
			f.Page == 2 && f.Limit == 500
	})).Return(&catalog.ProductPage{
		Products:   []catalog.ProductSummary{},
		Pagination: catalog.Pagination{Page: 2, Limit: 50, Total: 0},
	}, nil).Once()

	rr := env.do(t, http.MethodGet, "/products?category=ceramique&search=bol&min_price=10&featured=true&sort=price&order=ASC&page=2&limit=500", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var page catalog.ProductPage
	decodeBody(t, rr, &page)
	assert.Equal(t, 50, page.Pagination.Limit)
	env.catalog.AssertExpectations(t)
}

func TestListProducts_DefaultLimitAndBadNumbers(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.On("ListProducts", mock.Anything, mock.MatchedBy(func(f catalog.ListFilter) bool {
		return f.Limit == catalog.DefaultLimit && f.Page == 1
	})).Return(&catalog.ProductPage{}, nil).Once()

	rr := env.do(t, http.MethodGet, "/products", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	for _, q := range []string{"min_price=abc", "page=x", "limit=1.5"} {
		rr = env.do(t, http.MethodGet, "/products?"+q, "", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
	env.catalog.AssertExpectations(t)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.On("GetProduct", mock.Anything, "absent").Return(nil, catalog.ErrProductNotFound).Once()

	rr := env.do(t, http.MethodGet, "/products/absent", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCart_AddItem(t *testing.T) {
	productID := uuid.Must(uuid.NewV4())

	testCases := []struct {
		name     string
		body     string
		qty      int
		err      error
		wantCode int
	}{
		{"defaults to one", `{"product_id":"` + productID.String() + `"}`, 1, nil, http.StatusCreated},
		{"insufficient stock", `{"product_id":"` + productID.String() + `","quantity":9}`, 9, cart.ErrInsufficientStock, http.StatusConflict},
		{"unpublished", `{"product_id":"` + productID.String() + `","quantity":1}`, 1, cart.ErrProductNotFound, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			userID, token := env.login(t, user.RoleBuyer)

			if tc.err != nil {
				env.cart.On("AddItem", mock.Anything, userID, productID, tc.qty).Return(nil, tc.err).Once()
			} else {
				env.cart.On("AddItem", mock.Anything, userID, productID, tc.qty).
					Return(&cart.Line{ID: uuid.Must(uuid.NewV4()), ProductID: productID, Quantity: tc.qty}, nil).Once()
			}

			rr := env.do(t, http.MethodPost, "/cart", tc.body, token)
			assert.Equal(t, tc.wantCode, rr.Code)
			env.cart.AssertExpectations(t)
		})
	}

	t.Run("zero quantity fails validation", func(t *testing.T) {
		env := newTestEnv(t)
		_, token := env.login(t, user.RoleBuyer)

		rr := env.do(t, http.MethodPost, "/cart", `{"product_id":"`+productID.String()+`","quantity":0}`, token)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCart_UpdateAndRemove_NotOwned(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.login(t, user.RoleBuyer)
	itemID := uuid.Must(uuid.NewV4())

	env.cart.On("UpdateItem", mock.Anything, userID, itemID, 2).Return(nil, cart.ErrItemNotFound).Once()
	env.cart.On("RemoveItem", mock.Anything, userID, itemID).Return(cart.ErrItemNotFound).Once()

	rr := env.do(t, http.MethodPatch, "/cart/"+itemID.String(), `{"quantity":2}`, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodDelete, "/cart/"+itemID.String(), "", token)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodDelete, "/cart/not-a-uuid", "", token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCheckout_Success(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.login(t, user.RoleBuyer)

	created := &order.Order{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       userID,
		Status:       order.StatusPending,
		TotalAmount:  decimal.RequireFromString("55.00"),
		ShippingCost: decimal.Zero,
		ItemsCount:   2,
		CreatedAt:    testNow,
	}
	env.orders.On("Checkout", mock.Anything, userID, mock.MatchedBy(func(a order.ShippingAddress) bool {
		return a.City != nil && *a.City == "Lyon" && a.Country == ""
	}), mock.AnythingOfType("string")).Return(created, nil).Once()

	rr := env.do(t, http.MethodPost, "/cart/checkout", `{"shipping_city":"Lyon"}`, token)
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		Order      order.Order `json:"order"`
		ItemsCount int         `json:"items_count"`
	}
	decodeBody(t, rr, &resp)
	assert.Equal(t, 2, resp.ItemsCount)
	assert.Equal(t, created.ID, resp.Order.ID)
	assert.True(t, created.TotalAmount.Equal(resp.Order.TotalAmount))
	assert.True(t, resp.Order.ShippingCost.IsZero())
	env.orders.AssertExpectations(t)
}

func TestCheckout_EmptyBodyIsAllowed(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.login(t, user.RoleBuyer)

	env.orders.On("Checkout", mock.Anything, userID, order.ShippingAddress{}, mock.Anything).
		Return(&order.Order{ID: uuid.Must(uuid.NewV4()), ItemsCount: 1}, nil).Once()

	rr := env.do(t, http.MethodPost, "/cart/checkout", "", token)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestCheckout_EmptyChunkedBodyIsAllowed(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.login(t, user.RoleBuyer)

	env.orders.On("Checkout", mock.Anything, userID, order.ShippingAddress{}, mock.Anything).
		Return(&order.Order{ID: uuid.Must(uuid.NewV4()), ItemsCount: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/cart/checkout", io.LimitReader(bytes.NewReader(nil), 0))
	req.ContentLength = -1
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	env.orders.AssertExpectations(t)
}

func TestCheckout_Failures(t *testing.T) {
	productID := uuid.Must(uuid.NewV4())

	t.Run("empty cart", func(t *testing.T) {
		env := newTestEnv(t)
		userID, token := env.login(t, user.RoleBuyer)
		env.orders.On("Checkout", mock.Anything, userID, mock.Anything, mock.Anything).Return(nil, order.ErrEmptyCart).Once()

		rr := env.do(t, http.MethodPost, "/cart/checkout", `{}`, token)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("insufficient stock names the product", func(t *testing.T) {
		env := newTestEnv(t)
		userID, token := env.login(t, user.RoleBuyer)
		env.orders.On("Checkout", mock.Anything, userID, mock.Anything, mock.Anything).
			Return(nil, &order.StockError{ProductID: productID, Title: "Bol C"}).Once()

		rr := env.do(t, http.MethodPost, "/cart/checkout", `{}`, token)
		require.Equal(t, http.StatusConflict, rr.Code)

		var resp handler.StockErrorResponse
		decodeBody(t, rr, &resp)
		assert.Equal(t, productID, resp.ProductID)
		assert.Contains(t, resp.Error, "Bol C")
	})

	t.Run("invalid country code", func(t *testing.T) {
		env := newTestEnv(t)
		_, token := env.login(t, user.RoleBuyer)

		rr := env.do(t, http.MethodPost, "/cart/checkout", `{"shipping_country":"FRA"}`, token)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		env.orders.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrders_GetOtherUsersOrder(t *testing.T) {
	env := newTestEnv(t)
	userID, token := env.login(t, user.RoleBuyer)
	orderID := uuid.Must(uuid.NewV4())

	env.orders.On("GetOrder", mock.Anything, userID, orderID).Return(nil, order.ErrOrderNotFound).Once()

	rr := env.do(t, http.MethodGet, "/orders/"+orderID.String(), "", token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFanzine_PublicIssueMetadataHidesPDF(t *testing.T) {
	env := newTestEnv(t)
	issue := fanzine.Issue{ID: uuid.Must(uuid.NewV4()), IssueNumber: 4, Title: "Printemps", PDFRef: "issues/4.pdf"}
	env.fanzine.On("ListIssues", mock.Anything).Return([]fanzine.Issue{issue}, nil).Once()

	rr := env.do(t, http.MethodGet, "/fanzine/issues", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "issues/4.pdf")
}

func TestFanzine_ReadIssue(t *testing.T) {
	issueID := uuid.Must(uuid.NewV4())

	t.Run("granted", func(t *testing.T) {
		env := newTestEnv(t)
		userID, token := env.login(t, user.RoleBuyer)
		env.fanzine.On("ResolveAccess", mock.Anything, userID, issueID).Return(&fanzine.Access{
			IssueID: issueID,
			PDFURL:  "https://cdn.example.com/4.pdf",
			Reason:  fanzine.ReasonSubscription,
		}, nil).Once()

		rr := env.do(t, http.MethodGet, "/fanzine/read/"+issueID.String(), "", token)
		require.Equal(t, http.StatusOK, rr.Code)

		var body map[string]any
		decodeBody(t, rr, &body)
		assert.Equal(t, "subscription", body["access"])
		assert.Equal(t, "https://cdn.example.com/4.pdf", body["pdf_url"])
	})

	t.Run("denied", func(t *testing.T) {
		env := newTestEnv(t)
		userID, token := env.login(t, user.RoleBuyer)
		env.fanzine.On("ResolveAccess", mock.Anything, userID, issueID).Return(nil, fanzine.ErrNoAccess).Once()

		rr := env.do(t, http.MethodGet, "/fanzine/read/"+issueID.String(), "", token)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unknown issue", func(t *testing.T) {
		env := newTestEnv(t)
		userID, token := env.login(t, user.RoleBuyer)
		env.fanzine.On("ResolveAccess", mock.Anything, userID, issueID).Return(nil, fanzine.ErrIssueNotFound).Once()

		rr := env.do(t, http.MethodGet, "/fanzine/read/"+issueID.String(), "", token)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestSubscriptions(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		env := newTestEnv(t)
		userID, token := env.login(t, user.RoleBuyer)
		sub := &fanzine.Subscription{ID: uuid.Must(uuid.NewV4()), UserID: userID, Type: fanzine.TypeDigital, Status: fanzine.StatusActive}
		env.fanzine.On("CreateSubscription", mock.Anything, userID, fanzine.TypeDigital, mock.Anything).Return(sub, nil).Once()

		rr := env.do(t, http.MethodPost, "/subscriptions", `{"type":"DIGITAL"}`, token)
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("duplicate active", func(t *testing.T) {
		env := newTestEnv(t)
		userID, token := env.login(t, user.RoleBuyer)
		env.fanzine.On("CreateSubscription", mock.Anything, userID, fanzine.TypePaper, mock.Anything).Return(nil, fanzine.ErrSubscriptionExists).Once()

		rr := env.do(t, http.MethodPost, "/subscriptions", `{"type":"PAPER"}`, token)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("unknown type", func(t *testing.T) {
		env := newTestEnv(t)
		_, token := env.login(t, user.RoleBuyer)

		rr := env.do(t, http.MethodPost, "/subscriptions", `{"type":"WEEKLY"}`, token)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("cancel not found", func(t *testing.T) {
		env := newTestEnv(t)
		userID, token := env.login(t, user.RoleBuyer)
		subID := uuid.Must(uuid.NewV4())
		env.fanzine.On("CancelSubscription", mock.Anything, userID, subID, mock.Anything).Return(nil, fanzine.ErrSubscriptionNotFound).Once()

		rr := env.do(t, http.MethodDelete, "/subscriptions/"+subID.String(), "", token)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.On("ListCategories", mock.Anything).Return([]catalog.Category{}, nil).Once()

	rr := env.do(t, http.MethodGet, "/categories", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `petite_maison_http_requests_total{method="GET",route="/categories",status="200"} 1`)
}
