package registration_test

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// MockRouteRegistrar records route registrations.
type MockRouteRegistrar struct {
	mock.Mock
}

func (m *MockRouteRegistrar) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.Called(path, handler)
	return nil
}

func (m *MockRouteRegistrar) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.Called(path, handler)
	return nil
}

// MockContext mocks router.Context. State-carrying methods the flash layer
// touches (cookies, locals, headers) record instead of asserting so tests do
// not depend on its internals.
type MockContext struct {
	mock.Mock
	NextCalled bool
	SetCookies []*router.Cookie
	locals     map[any]any
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	return m
}

func (m *MockContext) Header(key string) string {
	return ""
}

func (m *MockContext) Get(key string, defaultValue any) any {
	if v, ok := m.locals[key]; ok {
		return v
	}
	return defaultValue
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	if v, ok := m.Get(key, defaultValue).(bool); ok {
		return v
	}
	return defaultValue
}

func (m *MockContext) GetInt(key string, def int) int {
	if v, ok := m.Get(key, def).(int); ok {
		return v
	}
	return def
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	if v, ok := m.Get(key, defaultValue).(string); ok {
		return v
	}
	return defaultValue
}

func (m *MockContext) Set(key string, val any) {
	if m.locals == nil {
		m.locals = map[any]any{}
	}
	m.locals[key] = val
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	return nil
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.SetCookies = append(m.SetCookies, cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) QueryValues(key string) []string {
	return nil
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if m.locals == nil {
		m.locals = map[any]any{}
	}
	if len(value) > 0 {
		m.locals[key] = value[0]
		return nil
	}
	return m.locals[key]
}

func (m *MockContext) OriginalURL() string {
	return ""
}

func (m *MockContext) OnNext(callback func() error) {}

func (m *MockContext) Referer() string {
	return ""
}

func (m *MockContext) LocalsMerge(key any, value map[string]any) map[string]any {
	return value
}

func (m *MockContext) FormFile(key string) (*multipart.FileHeader, error) {
	return nil, nil
}

func (m *MockContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *MockContext) IP() string {
	return ""
}

func (m *MockContext) SendStatus(code int) error {
	return nil
}

func (m *MockContext) SendStream(r io.Reader) error {
	return nil
}

func (m *MockContext) RouteName() string {
	return ""
}

func (m *MockContext) RouteParams() map[string]string {
	return nil
}
