package portal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/textproto"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/validation-portal/portal-client/internal/audit"
	"github.com/validation-portal/portal-client/internal/hash"
	"github.com/validation-portal/portal-client/internal/types"
)

type loadedArtifact struct {
	artifact *Artifact
	data     []byte
	sha256   string
}

func (l loadedArtifact) audit() audit.Artifact {
	return audit.Artifact{Name: l.artifact.Name, SHA256: l.sha256, Size: int64(len(l.data))}
}

func load(ctx context.Context, a *Artifact) (loadedArtifact, error) {
	r, err := a.Open()
	if err != nil {
		return loadedArtifact{}, fmt.Errorf("failed to open %s: %w", a.Name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return loadedArtifact{}, fmt.Errorf("failed to read %s: %w", a.Name, err)
	}

	sum, err := hash.Reader(ctx, bytes.NewReader(data))
	if err != nil {
		return loadedArtifact{}, err
	}

	return loadedArtifact{artifact: a, data: data, sha256: sum}, nil
}

// Reads both artifacts concurrently
func loadBoth(ctx context.Context, sbom, dataPrep *Artifact) (loadedArtifact, loadedArtifact, error) {
	var ls, ld loadedArtifact

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		ls, err = load(ctx, sbom)
		return err
	})
	eg.Go(func() error {
		var err error
		ld, err = load(ctx, dataPrep)
		return err
	})

	if err := eg.Wait(); err != nil {
		return loadedArtifact{}, loadedArtifact{}, err
	}

	return ls, ld, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(w *multipart.Writer, field string, l loadedArtifact) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(
		`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field),
		quoteEscaper.Replace(l.artifact.Name),
	))

	contentType := l.artifact.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}

	_, err = part.Write(l.data)
	return err
}

type payload struct {
	contentType string
	body        []byte
}

// One multipart body: two file parts and three scalar parts
func buildPayload(sbom, dataPrep loadedArtifact, params ValidationParameters) (*payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := writeFile(w, types.FieldSBOM, sbom); err != nil {
		return nil, err
	}
	if err := writeFile(w, types.FieldDataPrep, dataPrep); err != nil {
		return nil, err
	}

	fields := []struct{ key, value string }{
		{types.FieldPlantReference, params.PlantReference},
		{types.FieldProductionAreaReference, params.ProductionAreaReference},
		{types.FieldSingleFileAssembly, string(params.SingleFileAssembly)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return &payload{contentType: w.FormDataContentType(), body: buf.Bytes()}, nil
}

func percent(sent, total int64) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(sent) * 100 / float64(total)))
}

// Counts bytes as the transport pulls them and reports each increase of
// the rounded percentage
type progressReader struct {
	r        io.Reader
	report   func(int)
	total    int64
	sent     int64
	reported int
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.sent += int64(n)
	if pct := percent(p.sent, p.total); pct > p.reported {
		p.reported = pct
		p.report(pct)
	}
	return n, err
}
