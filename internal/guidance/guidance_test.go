package guidance_test

import (
	"testing"

	"github.com/skylift/skylift/internal/domain"
	"github.com/skylift/skylift/internal/guidance"
)

func TestHelp_CoversAllDeploymentTypes(t *testing.T) {
	for _, dt := range []domain.DeploymentType{
		domain.DeploymentTypeBackend,
		domain.DeploymentTypeFrontend,
		domain.DeploymentTypeFullstack,
	} {
		topic, err := guidance.Help(dt)
		if err != nil {
			t.Errorf("Help(%s): %v", dt, err)
			continue
		}
		if topic.Title == "" || len(topic.Steps) == 0 {
			t.Errorf("Help(%s) incomplete: %+v", dt, topic)
		}
	}

	if _, err := guidance.Help("container"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestForFramework(t *testing.T) {
	fd, ok := guidance.ForFramework("Flask")
	if !ok {
		t.Fatal("flask not found")
	}
	if fd.Runtime != "python3.13" || fd.DefaultPort != 8000 {
		t.Errorf("flask defaults = %+v", fd)
	}

	if _, ok := guidance.ForFramework("cobol-on-wheels"); ok {
		t.Error("unknown framework resolved")
	}
}
