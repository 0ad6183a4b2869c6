package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const analysisTemplate = `Analyze this artifact. Respond STRICTLY in JSON format without markdown:
{
  "type": "artifact type (amphora, vase, etc.)",
  "period": "historical period",
  "culture": "culture",
  "material": "material",
  "purpose": "purpose",
  "dimensions": {
    "height": number_in_cm,
    "baseWidth": number_in_cm,
    "topWidth": number_in_cm
  },
  "shapeProfile": "convex, linear or concave",
  "condition": "condition",
  "restoration": "restoration recommendations",
  "description": "detailed description"
}`

const restorationTemplate = "Professional archaeological restoration: {{prompt}}, completely restored, " +
	"JUST the artifact ALONE on solid white background #FFFFFF, nothing else in frame, " +
	"object only, centered, professional product shot, NO hands."

const generationTemplate = "{{prompt}}, ancient artifact, museum quality, highly detailed, realistic"

// Seed 写入初始管理员、三个提示词模板和四个厂商凭证占位。
// 幂等：已存在的行保持原样，不覆盖管理员后来改过的配置。
func (s *Store) Seed(ctx context.Context) error {
	if err := s.seedAdmin(ctx); err != nil {
		return err
	}

	templates := []PromptTemplate{
		{Name: "analysis", Description: "Artifact analysis prompt for vision models", Template: analysisTemplate},
		{Name: "restoration", Description: "Image restoration prompt for image generation models", Template: restorationTemplate},
		{Name: "3d_generation", Description: "3D model generation prompt for Meshy", Template: generationTemplate},
	}
	for i := range templates {
		if err := s.seedTemplate(ctx, &templates[i]); err != nil {
			return err
		}
	}

	credentials := []ServiceCredential{
		{
			ServiceName: "openai", Model: "gpt-4o",
			Temperature: 0.7, MaxTokens: 2000, IsActive: true,
			ExtraConfig: `{"imageSize":"1024x1024","imageQuality":"standard"}`,
		},
		{
			ServiceName: "gemini", Model: "gemini-2.0-flash",
			Temperature: 0.7, MaxTokens: 2000, IsActive: false,
		},
		{
			ServiceName: "grok", Model: "grok-2-vision-latest",
			Temperature: 0.7, MaxTokens: 2000, IsActive: false,
			ExtraConfig: `{"imageModel":"grok-2-image"}`,
		},
		{
			ServiceName: "meshy",
			Temperature: 0.7, MaxTokens: 2000, IsActive: true,
			ExtraConfig: `{"artStyle":"realistic","negativePrompt":"low quality, blurry, distorted"}`,
		},
	}
	for i := range credentials {
		if err := s.seedCredential(ctx, &credentials[i]); err != nil {
			return err
		}
	}

	s.logger.Info("database seeded")
	return nil
}

func (s *Store) seedAdmin(ctx context.Context) error {
	_, err := s.UserByEmail(ctx, "admin@artifact-restoration.local")
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), 12)
	if err != nil {
		return err
	}
	s.logger.Warn("seeding default admin account, change its password",
		zap.String("email", "admin@artifact-restoration.local"))
	return s.CreateUser(ctx, &User{
		Email:          "admin@artifact-restoration.local",
		Name:           "Administrator",
		HashedPassword: string(hash),
		Role:           RoleAdmin,
	})
}

func (s *Store) seedTemplate(ctx context.Context, t *PromptTemplate) error {
	_, err := s.TemplateByName(ctx, t.Name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *Store) seedCredential(ctx context.Context, c *ServiceCredential) error {
	_, err := s.CredentialByService(ctx, c.ServiceName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.db.WithContext(ctx).Create(c).Error
}
