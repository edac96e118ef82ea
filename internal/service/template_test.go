package service_test

import (
	"testing"

	"github.com/Harvlin/SaaS-CRM/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	vars := map[string]string{
		"name":    "Ada",
		"company": "Acme",
	}

	t.Run("substitutes placeholders", func(t *testing.T) {
		got := service.RenderTemplate("Hi {{name}}, welcome to {{company}}!", vars)
		assert.Equal(t, "Hi Ada, welcome to Acme!", got)
	})

	t.Run("trims whitespace inside placeholders", func(t *testing.T) {
		got := service.RenderTemplate("Hi {{ name }}!", vars)
		assert.Equal(t, "Hi Ada!", got)
	})

	t.Run("missing variables render empty", func(t *testing.T) {
		got := service.RenderTemplate("Hi {{name}}{{title}}!", vars)
		assert.Equal(t, "Hi Ada!", got)
	})

	t.Run("values are not re-expanded", func(t *testing.T) {
		got := service.RenderTemplate("{{a}}", map[string]string{
			"a": "{{b}}",
			"b": "boom",
		})
		assert.Equal(t, "{{b}}", got)
	})

	t.Run("repeated placeholders each substitute", func(t *testing.T) {
		got := service.RenderTemplate("{{name}} and {{name}}", vars)
		assert.Equal(t, "Ada and Ada", got)
	})

	t.Run("nil vars leave content untouched", func(t *testing.T) {
		got := service.RenderTemplate("Hi {{name}}!", nil)
		assert.Equal(t, "Hi {{name}}!", got)
	})

	t.Run("malformed placeholders pass through", func(t *testing.T) {
		assert.Equal(t, "Hi {{name!", service.RenderTemplate("Hi {{name!", vars))
		assert.Equal(t, "Hi name}}!", service.RenderTemplate("Hi name}}!", vars))
	})

	t.Run("empty content stays empty", func(t *testing.T) {
		assert.Equal(t, "", service.RenderTemplate("", vars))
	})
}
