package routes

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/validation-portal/portal-client/internal/types"
)

// every xlsx workbook carries this part
const workbookPart = "xl/workbook.xml"

type validateRequest struct {
	PlantReference          string `form:"workcenter_plantreference"`
	ProductionAreaReference string `form:"workcenter_productionareareference"`
	SingleFileAssembly      string `form:"wokrcenter_usesinglefileassembly"`
}

func readFormFile(c echo.Context, field string) (*multipart.FileHeader, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("'%s'", field)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	return fh, data, err
}

func checkSBOM(data []byte) error {
	d := xml.NewDecoder(bytes.NewReader(data))
	seenRoot := false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("invalid sbom: %w", err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			seenRoot = true
		}
	}
	if !seenRoot {
		return errors.New("invalid sbom: no root element")
	}
	return nil
}

func checkDataPrep(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("invalid data preparation file: %w", err)
	}
	for _, f := range zr.File {
		if f.Name == workbookPart {
			return nil
		}
	}
	return fmt.Errorf("invalid data preparation file: missing %s", workbookPart)
}

func renderReport(
	username string,
	req validateRequest,
	flag types.AssemblyFlag,
	sbom, dataPrep *multipart.FileHeader,
) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	fmt.Fprintf(&b, "%% validated for %s\n", username)
	fmt.Fprintf(&b, "%% sbom %s (%d bytes)\n", sbom.Filename, sbom.Size)
	fmt.Fprintf(&b, "%% data preparation %s (%d bytes)\n", dataPrep.Filename, dataPrep.Size)
	fmt.Fprintf(&b, "%% plant=%q area=%q single_file_assembly=%s\n",
		req.PlantReference, req.ProductionAreaReference, flag)
	b.WriteString("%EOF\n")
	return []byte(b.String())
}

// Validate checks both uploads and answers with a generated report
func (s *Server) Validate(c echo.Context) error {
	var req validateRequest

	err := c.Bind(&req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, types.StringError("failed parsing request data"))
	}

	// the field is optional and defaults to No
	flag := types.AssemblyFlagNo
	if req.SingleFileAssembly != "" {
		flag, err = types.ParseAssemblyFlag(req.SingleFileAssembly)
		if err != nil {
			return c.JSON(http.StatusBadRequest, types.StringError(err.Error()))
		}
	}

	sbomHeader, sbom, err := readFormFile(c, types.FieldSBOM)
	if err != nil {
		return c.JSON(http.StatusBadRequest, types.StringError(err.Error()))
	}
	dataPrepHeader, dataPrep, err := readFormFile(c, types.FieldDataPrep)
	if err != nil {
		return c.JSON(http.StatusBadRequest, types.StringError(err.Error()))
	}

	if err = checkSBOM(sbom); err != nil {
		return c.JSON(http.StatusBadRequest, types.StringError(err.Error()))
	}
	if err = checkDataPrep(dataPrep); err != nil {
		return c.JSON(http.StatusBadRequest, types.StringError(err.Error()))
	}

	username, _ := c.Get(usernameKey).(string)
	content := renderReport(username, req, flag, sbomHeader, dataPrepHeader)
	r := s.store(username, fmt.Sprintf("Report_%s.pdf", uuid.NewString()), content)

	c.Response().Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", r.filename),
	)
	return c.Blob(http.StatusOK, "application/pdf", r.content)
}
