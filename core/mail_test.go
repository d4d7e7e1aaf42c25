package core

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailFS_layouts(t *testing.T) {
	for _, name := range []string{"_base.gohtml", "_base.txt"} {
		_, err := fs.Stat(emailFS, "templates/email/"+name)
		assert.NoError(t, err, name)
	}
}

func TestEmailTemplates_Render(t *testing.T) {
	tmpls, err := ParseEmailTemplates("Asistencia", "http://localhost:3000")
	require.NoError(t, err)
	assert.True(t, tmpls.Has("report"))
	assert.True(t, tmpls.Has("password_changed"))
	assert.False(t, tmpls.Has("_base"))

	t.Run("template", func(t *testing.T) {
		msg := &EmailMessage{
			Subject:      "Uniform",
			TemplateName: "report",
			TemplateData: map[string]interface{}{
				"Type":        "uniform",
				"StudentName": "Ana",
				"Subject":     "Missing shoes",
				"Body":        "Please bring proper shoes tomorrow.",
			},
		}
		require.NoError(t, tmpls.Render(msg))
		assert.Contains(t, msg.TextContent, "Missing shoes")
		assert.Contains(t, msg.TextContent, "about Ana")
		assert.Contains(t, msg.HTMLContent, "<h3>Missing shoes</h3>")
		assert.Contains(t, msg.HTMLContent, "http://localhost:3000")
		assert.True(t, msg.HasContent())
	})

	t.Run("plain body", func(t *testing.T) {
		msg := &EmailMessage{BodyStr: "hi"}
		require.NoError(t, tmpls.Render(msg))
		assert.Equal(t, "hi", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := &EmailMessage{TemplateName: "lol"}
		assert.Error(t, tmpls.Render(msg))
	})
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("user not found")))
	assert.True(t, IsConflict(NewConflictError("email taken")))
	assert.True(t, IsUnavailable(NewUnavailableError(nil)))
	assert.True(t, IsValidation(NewValidationError(nil, FieldError{Field: "email", Error: "invalid"})))
	assert.True(t, IsShutdown(NewShutdownError("bye")))
	assert.False(t, IsNotFound(NewConflictError("x")))
}
