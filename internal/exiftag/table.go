package exiftag

import "strconv"

// Tag ids referenced directly by this module.
const (
	TagExifIFD     uint16 = 0x8769
	TagGPSInfo     uint16 = 0x8825
	TagInteropIFD  uint16 = 0xA005
	TagImageTitle  uint16 = 0xA436
	TagMakerNote   uint16 = 0x927C
	GPSLatitudeRef uint16 = 0x0001
	GPSLatitude    uint16 = 0x0002
	GPSLongRef     uint16 = 0x0003
	GPSLongitude   uint16 = 0x0004
)

// ExtensionTags are ids missing from the base table that galleries rely on.
var ExtensionTags = map[uint16]string{
	TagImageTitle: "ImageTitle",
}

// Table maps tag ids to canonical names. A Table is never modified after
// NewTable returns, so it is safe to share between goroutines.
type Table struct {
	names map[uint16]string
}

// NewTable composes the base EXIF table with extension entries. Later
// extension maps win over earlier ones and over the base table.
func NewTable(extensions ...map[uint16]string) *Table {
	names := make(map[uint16]string, len(baseTags)+8)
	for id, name := range baseTags {
		names[id] = name
	}
	for _, ext := range extensions {
		for id, name := range ext {
			names[id] = name
		}
	}
	return &Table{names: names}
}

// Name returns the canonical name for id, or the decimal id when unknown.
func (t *Table) Name(id uint16) string {
	if name, ok := t.names[id]; ok {
		return name
	}
	return strconv.Itoa(int(id))
}

// Len reports the number of known ids.
func (t *Table) Len() int {
	return len(t.names)
}

// GPSTagName returns the name of a GPS sub-IFD tag, used for logging.
func GPSTagName(id uint16) string {
	if name, ok := gpsTags[id]; ok {
		return name
	}
	return strconv.Itoa(int(id))
}

var baseTags = map[uint16]string{
	0x000B: "ProcessingSoftware",
	0x00FE: "NewSubfileType",
	0x00FF: "SubfileType",
	0x0100: "ImageWidth",
	0x0101: "ImageLength",
	0x0102: "BitsPerSample",
	0x0103: "Compression",
	0x0106: "PhotometricInterpretation",
	0x010D: "DocumentName",
	0x010E: "ImageDescription",
	0x010F: "Make",
	0x0110: "Model",
	0x0111: "StripOffsets",
	0x0112: "Orientation",
	0x0115: "SamplesPerPixel",
	0x0116: "RowsPerStrip",
	0x0117: "StripByteCounts",
	0x011A: "XResolution",
	0x011B: "YResolution",
	0x011C: "PlanarConfiguration",
	0x0128: "ResolutionUnit",
	0x012D: "TransferFunction",
	0x0131: "Software",
	0x0132: "DateTime",
	0x013B: "Artist",
	0x013C: "HostComputer",
	0x013E: "WhitePoint",
	0x013F: "PrimaryChromaticities",
	0x0201: "JpegIFOffset",
	0x0202: "JpegIFByteCount",
	0x0211: "YCbCrCoefficients",
	0x0212: "YCbCrSubSampling",
	0x0213: "YCbCrPositioning",
	0x0214: "ReferenceBlackWhite",
	0x02BC: "XMLPacket",
	0x4746: "Rating",
	0x4749: "RatingPercent",
	0x8298: "Copyright",
	0x829A: "ExposureTime",
	0x829D: "FNumber",
	0x83BB: "IptcNAA",
	0x8649: "ImageResources",
	0x8769: "ExifOffset",
	0x8773: "InterColorProfile",
	0x8822: "ExposureProgram",
	0x8824: "SpectralSensitivity",
	0x8825: "GPSInfo",
	0x8827: "ISOSpeedRatings",
	0x8828: "OECF",
	0x8830: "SensitivityType",
	0x8832: "RecommendedExposureIndex",
	0x9000: "ExifVersion",
	0x9003: "DateTimeOriginal",
	0x9004: "DateTimeDigitized",
	0x9010: "OffsetTime",
	0x9011: "OffsetTimeOriginal",
	0x9012: "OffsetTimeDigitized",
	0x9101: "ComponentsConfiguration",
	0x9102: "CompressedBitsPerPixel",
	0x9201: "ShutterSpeedValue",
	0x9202: "ApertureValue",
	0x9203: "BrightnessValue",
	0x9204: "ExposureBiasValue",
	0x9205: "MaxApertureValue",
	0x9206: "SubjectDistance",
	0x9207: "MeteringMode",
	0x9208: "LightSource",
	0x9209: "Flash",
	0x920A: "FocalLength",
	0x9214: "SubjectArea",
	0x927C: "MakerNote",
	0x9286: "UserComment",
	0x9290: "SubsecTime",
	0x9291: "SubsecTimeOriginal",
	0x9292: "SubsecTimeDigitized",
	0x9C9B: "XPTitle",
	0x9C9C: "XPComment",
	0x9C9D: "XPAuthor",
	0x9C9E: "XPKeywords",
	0x9C9F: "XPSubject",
	0xA000: "FlashPixVersion",
	0xA001: "ColorSpace",
	0xA002: "ExifImageWidth",
	0xA003: "ExifImageHeight",
	0xA004: "RelatedSoundFile",
	0xA005: "ExifInteroperabilityOffset",
	0xA20B: "FlashEnergy",
	0xA20E: "FocalPlaneXResolution",
	0xA20F: "FocalPlaneYResolution",
	0xA210: "FocalPlaneResolutionUnit",
	0xA214: "SubjectLocation",
	0xA215: "ExposureIndex",
	0xA217: "SensingMethod",
	0xA300: "FileSource",
	0xA301: "SceneType",
	0xA302: "CFAPattern",
	0xA401: "CustomRendered",
	0xA402: "ExposureMode",
	0xA403: "WhiteBalance",
	0xA404: "DigitalZoomRatio",
	0xA405: "FocalLengthIn35mmFilm",
	0xA406: "SceneCaptureType",
	0xA407: "GainControl",
	0xA408: "Contrast",
	0xA409: "Saturation",
	0xA40A: "Sharpness",
	0xA40B: "DeviceSettingDescription",
	0xA40C: "SubjectDistanceRange",
	0xA420: "ImageUniqueID",
	0xA430: "CameraOwnerName",
	0xA431: "BodySerialNumber",
	0xA432: "LensSpecification",
	0xA433: "LensMake",
	0xA434: "LensModel",
	0xA435: "LensSerialNumber",
	0xA500: "Gamma",
	0xC4A5: "PrintImageMatching",
	0xC612: "DNGVersion",
	0xC614: "UniqueCameraModel",
}

var gpsTags = map[uint16]string{
	0x0000: "GPSVersionID",
	0x0001: "GPSLatitudeRef",
	0x0002: "GPSLatitude",
	0x0003: "GPSLongitudeRef",
	0x0004: "GPSLongitude",
	0x0005: "GPSAltitudeRef",
	0x0006: "GPSAltitude",
	0x0007: "GPSTimeStamp",
	0x0008: "GPSSatellites",
	0x0009: "GPSStatus",
	0x000A: "GPSMeasureMode",
	0x000B: "GPSDOP",
	0x000C: "GPSSpeedRef",
	0x000D: "GPSSpeed",
	0x000E: "GPSTrackRef",
	0x000F: "GPSTrack",
	0x0010: "GPSImgDirectionRef",
	0x0011: "GPSImgDirection",
	0x0012: "GPSMapDatum",
	0x001D: "GPSDateStamp",
	0x001E: "GPSDifferential",
}
