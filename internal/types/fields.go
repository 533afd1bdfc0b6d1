package types

// Multipart field keys expected by the validation service. The single file
// assembly key keeps the service's spelling.
const (
	FieldSBOM                    = "sbom"
	FieldDataPrep                = "excel_file"
	FieldPlantReference          = "workcenter_plantreference"
	FieldProductionAreaReference = "workcenter_productionareareference"
	FieldSingleFileAssembly      = "wokrcenter_usesinglefileassembly"
)

// Session store keys
const (
	SessionAccessToken  = "token"
	SessionRefreshToken = "refresh"
	SessionUsername     = "username"
)
